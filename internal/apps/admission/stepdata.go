package admission

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field kinds drive how raw JSON payload values are coerced before storage.
type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindBool
	kindDate
	kindJSON // arrays and maps stored as JSON text
)

type fieldSpec struct {
	column string
	kind   fieldKind
}

// stepDataFields is the allow-list of payload keys accepted by SaveStep,
// mapped to their database columns. Unknown keys are silently dropped.
var stepDataFields = map[string]fieldSpec{
	"examCode":        {"exam_code", kindString},
	"examName":        {"exam_name", kindString},
	"examNameOther":   {"exam_name_other", kindString},
	"registerNumber":  {"register_number", kindString},
	"passingMonth":    {"passing_month", kindInt},
	"passingYear":     {"passing_year", kindInt},
	"schoolCode":      {"school_code", kindString},
	"schoolName":      {"school_name", kindString},
	"passedBoardExam": {"passed_board_exam", kindBool},

	"applicantName": {"applicant_name", kindString},
	"aadhaarNumber": {"aadhaar_number", kindString},
	"gender":        {"gender", kindString},
	"dateOfBirth":   {"date_of_birth", kindDate},
	"motherName":    {"mother_name", kindString},
	"fatherName":    {"father_name", kindString},
	"guardianName":  {"guardian_name", kindString},

	"category":                   {"category", kindString},
	"categoryCode":               {"category_code", kindString},
	"ewsEligible":                {"ews_eligible", kindBool},
	"caste":                      {"caste", kindString},
	"religion":                   {"religion", kindString},
	"oec":                        {"oec", kindBool},
	"linguisticMinority":         {"linguistic_minority", kindBool},
	"linguisticLanguage":         {"linguistic_language", kindString},
	"differentlyAbled":           {"differently_abled", kindBool},
	"differentlyAbledPercentage": {"differently_abled_percentage", kindString},
	"differentlyAbledTypes":      {"differently_abled_types", kindJSON},

	"nativeState":          {"native_state", kindString},
	"nativeStateCode":      {"native_state_code", kindString},
	"nativeDistrict":       {"native_district", kindString},
	"nativeDistrictCode":   {"native_district_code", kindString},
	"nativeTaluk":          {"native_taluk", kindString},
	"nativeTalukCode":      {"native_taluk_code", kindString},
	"nativePanchayat":      {"native_panchayat", kindString},
	"nativePanchayatCode":  {"native_panchayat_code", kindString},
	"nativeCountry":        {"native_country", kindString},
	"permanentAddress":     {"permanent_address", kindString},
	"permanentPinCode":     {"permanent_pin_code", kindString},
	"communicationAddress": {"communication_address", kindString},
	"communicationPinCode": {"communication_pin_code", kindString},
	"phone":                {"phone", kindString},
	"email":                {"email", kindString},

	"graceMarks":       {"grace_marks", kindBool},
	"ncc":              {"ncc", kindBool},
	"scouts":           {"scouts", kindBool},
	"spc":              {"spc", kindBool},
	"defenceDependent": {"defence_dependent", kindBool},
	"littleKitesGrade": {"little_kites_grade", kindString},

	"sportsStateCount":            {"sports_state_count", kindInt},
	"sportsDistrictFirst":         {"sports_district_first", kindInt},
	"sportsDistrictSecond":        {"sports_district_second", kindInt},
	"sportsDistrictThird":         {"sports_district_third", kindInt},
	"sportsDistrictParticipation": {"sports_district_participation", kindInt},

	"kalolsavamStateCount":            {"kalolsavam_state_count", kindInt},
	"kalolsavamDistrictA":             {"kalolsavam_district_a", kindInt},
	"kalolsavamDistrictB":             {"kalolsavam_district_b", kindInt},
	"kalolsavamDistrictC":             {"kalolsavam_district_c", kindInt},
	"kalolsavamDistrictParticipation": {"kalolsavam_district_participation", kindInt},

	"ntse": {"ntse", kindBool},
	"nmms": {"nmms", kindBool},
	"uss":  {"uss", kindBool},
	"lss":  {"lss", kindBool},

	"scienceFairGrade":        {"science_fair_grade", kindString},
	"scienceFairCounts":       {"science_fair_counts", kindJSON},
	"mathsFairGrade":          {"maths_fair_grade", kindString},
	"mathsFairCounts":         {"maths_fair_counts", kindJSON},
	"itFairGrade":             {"it_fair_grade", kindString},
	"itFairCounts":            {"it_fair_counts", kindJSON},
	"workExperienceGrade":     {"work_experience_grade", kindString},
	"workExperienceCounts":    {"work_experience_counts", kindJSON},
	"socialScienceFairCounts": {"social_science_fair_counts", kindJSON},
	"clubs":                   {"clubs", kindJSON},

	"sslcAttempts":     {"sslc_attempts", kindInt},
	"previousAttempts": {"previous_attempts", kindJSON},
	"subjectGrades":    {"subject_grades", kindJSON},

	"applicantSignature": {"applicant_signature", kindString},
	"parentSignature":    {"parent_signature", kindString},
	"disclaimerAccepted": {"disclaimer_accepted", kindBool},
}

const subjectGradePrefix = "subjectGrade_"

// NormalizeStepData filters a raw step payload down to known fields and
// coerces each value for storage. The result maps database columns to
// values (nil means SQL NULL).
//
// Special cases carried over from the form clients:
//   - "ews" is a legacy alias whose truthiness sets ewsEligible
//   - individual "subjectGrade_X" keys are folded into the subjectGrades
//     JSON map, keeping their full key
//   - a differentlyAbledTypes array also syncs the differentlyAbled flag
func NormalizeStepData(body map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	if body == nil {
		return out
	}

	if v, ok := body["ews"]; ok {
		out["ews_eligible"] = truthy(v)
	}

	subjectGrades := map[string]string{}

	for key, value := range body {
		if key == "ews" {
			continue
		}
		if strings.HasPrefix(key, subjectGradePrefix) {
			if value != nil && value != "" {
				subjectGrades[key] = fmt.Sprint(value)
			}
			continue
		}

		spec, ok := stepDataFields[key]
		if !ok {
			continue
		}

		if value == nil || value == "" {
			out[spec.column] = nil
			continue
		}

		switch spec.kind {
		case kindInt:
			out[spec.column] = coerceInt(value)
		case kindDate:
			out[spec.column] = coerceDate(value)
		case kindBool:
			out[spec.column] = coerceBool(value)
		case kindJSON:
			out[spec.column] = coerceJSON(value)
		default:
			out[spec.column] = value
		}

		// An explicit differentlyAbledTypes array keeps the legacy
		// boolean in sync.
		if key == "differentlyAbledTypes" {
			if arr, ok := value.([]interface{}); ok {
				out["differently_abled"] = len(arr) > 0
			}
		}
	}

	if len(subjectGrades) > 0 {
		if b, err := json.Marshal(subjectGrades); err == nil {
			out["subject_grades"] = string(b)
		}
	}

	return out
}

func truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	default:
		return true
	}
}

// coerceInt parses ints the way form clients send them: numbers, or strings
// with a leading integer ("12", "12th"). Anything else becomes null.
func coerceInt(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		return int(x)
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		// Accept a leading integer the way parseInt would.
		end := 0
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
			end = 1
		}
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		if n, err := strconv.Atoi(s[:end]); err == nil {
			return n
		}
		return nil
	default:
		return nil
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02/01/2006",
}

func coerceDate(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return nil
}

// coerceBool is tri-state: true/"true" and false/"false" map to booleans,
// anything else to null.
func coerceBool(v interface{}) interface{} {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		if x == "true" {
			return true
		}
		if x == "false" {
			return false
		}
	}
	return nil
}

func coerceJSON(v interface{}) interface{} {
	switch v.(type) {
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		// Already serialized, or a scalar the client sent as-is.
		return v
	}
}

// Fields hydrated from JSON text back into arrays; a parse failure falls
// back to an empty array.
var hydrateArrayFields = []string{"clubs", "previousAttempts", "differentlyAbledTypes"}

var hydrateCountFields = []string{
	"scienceFairCounts",
	"mathsFairCounts",
	"itFairCounts",
	"workExperienceCounts",
	"socialScienceFairCounts",
}

// HydrateStepData converts a stored StepData row into the shape form clients
// expect: JSON text fields parsed back into arrays and maps, subjectGrades
// expanded onto individual subjectGrade_* keys, and the renamed Social
// Science key mapped onto its current name.
func HydrateStepData(sd *StepData) map[string]interface{} {
	if sd == nil {
		return nil
	}

	raw, err := json.Marshal(sd)
	if err != nil {
		return nil
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}

	for _, key := range hydrateArrayFields {
		if s, ok := out[key].(string); ok {
			var arr []interface{}
			if err := json.Unmarshal([]byte(s), &arr); err != nil {
				arr = []interface{}{}
			}
			out[key] = arr
		}
	}

	for _, key := range hydrateCountFields {
		if s, ok := out[key].(string); ok {
			var m map[string]interface{}
			if err := json.Unmarshal([]byte(s), &m); err != nil {
				out[key] = nil
			} else {
				out[key] = m
			}
		}
	}

	if s, ok := out["subjectGrades"].(string); ok {
		var grades map[string]interface{}
		if err := json.Unmarshal([]byte(s), &grades); err == nil {
			for k, v := range grades {
				out[k] = v
			}
		}
		// The raw JSON text stays in place either way.
	}

	// The Social Science subject key used to contain a space.
	if out["subjectGrade_SS"] == nil && out["subjectGrade_Social Science"] != nil {
		out["subjectGrade_SS"] = out["subjectGrade_Social Science"]
	}

	return out
}
