package stylist

import "strings"

// Gender is the closed set of genders the form offers.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOthers Gender = "Others"
)

// ParseGender accepts the canonical names case-insensitively.
func ParseGender(raw string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male":
		return GenderMale, true
	case "female":
		return GenderFemale, true
	case "others", "other":
		return GenderOthers, true
	}
	return "", false
}

// ReferenceImage is the optional user photo used for try-on generation.
type ReferenceImage struct {
	Data     []byte
	MimeType string
}

// UserProfile is one validated submission. It is not modified after submit.
type UserProfile struct {
	City           string
	Age            int
	Gender         Gender
	ReferenceImage *ReferenceImage
}

// HasReference reports whether a usable photo was supplied.
func (p UserProfile) HasReference() bool {
	return p.ReferenceImage != nil && len(p.ReferenceImage.Data) > 0
}

// Recommendation is the structured outfit and food suggestion.
type Recommendation struct {
	Headline     string   `json:"headline"`
	Top          string   `json:"top"`
	Bottom       string   `json:"bottom"`
	Footwear     string   `json:"footwear"`
	Accessories  []string `json:"accessories"`
	FoodItems    []string `json:"foodItems"`
	Reasoning    string   `json:"reasoning"`
	ColorPalette string   `json:"colorPalette"`
}

// Image is a generated picture.
type Image struct {
	Data     []byte
	MimeType string
}

// Config wires runtime dependencies for the stylist domain.
type Config struct {
	TextModel   string
	ImageModel  string
	Temperature float32
}
