/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"sort"

	"idcardstudio/internal/domain"
)

// FieldType classifies a bindable record field.
type FieldType string

const (
	FieldText  FieldType = "text"
	FieldDate  FieldType = "date"
	FieldImage FieldType = "image"
)

// FieldDef describes one key a layer can bind to.
type FieldDef struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Category string    `json:"category"`
}

var studentFields = []FieldDef{
	{"full_name", "Full Name", FieldText, "student"},
	{"id_number", "ID Number", FieldText, "student"},
	{"lrn", "LRN", FieldText, "student"},
	{"grade_level", "Grade Level", FieldText, "student"},
	{"section", "Section", FieldText, "student"},
	{"guardian_name", "Guardian Name", FieldText, "student"},
	{"guardian_contact", "Guardian Contact", FieldText, "student"},
	{"address", "Address", FieldText, "student"},
	{"birth_date", "Birth Date", FieldDate, "student"},
	{"blood_type", "Blood Type", FieldText, "student"},
	{"emergency_contact", "Emergency Contact", FieldText, "student"},
	{"school_year", "School Year", FieldText, "student"},
	{"photo", "Photo", FieldImage, "student"},
	{"signature", "Signature", FieldImage, "student"},
}

var employeeFields = []FieldDef{
	{"full_name", "Full Name", FieldText, "teacher"},
	{"employee_id", "Employee ID", FieldText, "teacher"},
	{"department", "Department", FieldText, "teacher"},
	{"position", "Position", FieldText, "teacher"},
	{"specialization", "Specialization", FieldText, "teacher"},
	{"contact_number", "Contact Number", FieldText, "teacher"},
	{"emergency_contact_name", "Emergency Contact Name", FieldText, "teacher"},
	{"emergency_contact_number", "Emergency Contact Number", FieldText, "teacher"},
	{"address", "Address", FieldText, "teacher"},
	{"birth_date", "Birth Date", FieldDate, "teacher"},
	{"blood_type", "Blood Type", FieldText, "teacher"},
	{"photo", "Photo", FieldImage, "teacher"},
	{"signature", "Signature", FieldImage, "teacher"},
}

var schoolFields = []FieldDef{
	{"school_name", "School Name", FieldText, "school"},
	{"school_address", "School Address", FieldText, "school"},
	{"school_contact", "School Contact", FieldText, "school"},
	{"principal_name", "Principal Name", FieldText, "school"},
	{"principal_signature", "Principal Signature", FieldImage, "school"},
	{"school_year", "School Year", FieldText, "school"},
	{"school_logo", "School Logo", FieldImage, "school"},
}

// Fields returns the bindable fields for a template kind. Students get the student
// catalog; every other kind gets the employee catalog. School fields are always appended.
func Fields(kind domain.Kind) []FieldDef {
	base := employeeFields
	if kind == domain.KindStudent {
		base = studentFields
	}
	out := make([]FieldDef, 0, len(base)+len(schoolFields))
	out = append(out, base...)
	return append(out, schoolFields...)
}

// dynamicImageKeys are the image fields resolved outside the engine.
var dynamicImageKeys = map[string]bool{
	"photo":               true,
	"signature":           true,
	"school_logo":         true,
	"principal_signature": true,
}

// IsDynamicImage reports whether key names an externally resolved image.
func IsDynamicImage(key string) bool { return dynamicImageKeys[key] }

// DynamicImageKeys lists the dynamic image keys in sorted order.
func DynamicImageKeys() []string {
	out := make([]string, 0, len(dynamicImageKeys))
	for k := range dynamicImageKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var school = Record{
	"school_name":    "Rizal National High School",
	"school_address": "123 Mabini St., Quezon City",
	"school_contact": "(02) 8123-4567",
	"principal_name": "Dr. Jose P. Santos",
	"school_year":    "2025-2026",
}

var samples = map[domain.Kind]Record{
	domain.KindStudent: {
		"full_name":         "Juan Dela Cruz",
		"id_number":         "2025-00123",
		"lrn":               "123456789012",
		"grade_level":       "Grade 10",
		"section":           "Rizal",
		"guardian_name":     "Maria Dela Cruz",
		"guardian_contact":  "0917-123-4567",
		"address":           "45 Kalayaan Ave., Quezon City",
		"birth_date":        "2009-05-14",
		"blood_type":        "O+",
		"emergency_contact": "0917-765-4321",
	},
	domain.KindTeacher: {
		"full_name":                "Ana Reyes",
		"employee_id":              "T-2025-015",
		"department":               "Science",
		"position":                 "Teacher III",
		"specialization":           "Chemistry",
		"contact_number":           "0918-222-3333",
		"emergency_contact_name":   "Carlos Reyes",
		"emergency_contact_number": "0918-444-5555",
		"address":                  "9 Maginhawa St., Quezon City",
		"birth_date":               "1988-11-02",
		"blood_type":               "A+",
	},
	domain.KindStaff: {
		"full_name":      "Pedro Bautista",
		"employee_id":    "S-2025-007",
		"department":     "Registrar",
		"position":       "Administrative Officer",
		"contact_number": "0919-111-2222",
		"address":        "77 Aurora Blvd., Quezon City",
		"blood_type":     "B+",
	},
	domain.KindVisitor: {
		"full_name":   "Guest Visitor",
		"id_number":   "V-0001",
		"employee_id": "V-0001",
		"position":    "Visitor",
	},
}

// Sample returns the built-in preview record for a kind. The result is a fresh copy.
func Sample(kind domain.Kind) Record {
	base, ok := samples[kind]
	if !ok {
		base = samples[domain.KindStudent]
	}
	out := make(Record, len(base)+len(school))
	for k, v := range school {
		out[k] = v
	}
	for k, v := range base {
		out[k] = v
	}
	return out
}
