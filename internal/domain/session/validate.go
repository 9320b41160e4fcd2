package session

import (
	"fmt"
	"strings"

	"github.com/yanqian/stylecast/internal/domain/stylist"
	apperrors "github.com/yanqian/stylecast/pkg/errors"
)

const (
	minAge = 1
	maxAge = 120
)

func validateSubmission(req SubmitRequest, maxImageBytes int) (stylist.UserProfile, error) {
	city := strings.TrimSpace(req.City)
	if city == "" {
		return stylist.UserProfile{}, apperrors.Wrap(apperrors.CodeInvalidInput, "city is required", nil)
	}
	if req.Age < minAge || req.Age > maxAge {
		return stylist.UserProfile{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("age must be between %d and %d", minAge, maxAge), nil)
	}
	gender, ok := stylist.ParseGender(req.Gender)
	if !ok {
		return stylist.UserProfile{}, apperrors.Wrap(apperrors.CodeInvalidInput, "gender must be one of Male, Female, Others", nil)
	}
	profile := stylist.UserProfile{City: city, Age: req.Age, Gender: gender}
	if strings.TrimSpace(req.ReferenceImage) == "" {
		return profile, nil
	}
	ref, err := stylist.ParseDataURI(req.ReferenceImage)
	if err != nil {
		return stylist.UserProfile{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), err)
	}
	if maxImageBytes > 0 && len(ref.Data) > maxImageBytes {
		return stylist.UserProfile{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("reference image exceeds %d bytes", maxImageBytes), nil)
	}
	profile.ReferenceImage = &ref
	return profile, nil
}
