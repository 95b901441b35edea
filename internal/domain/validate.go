package domain

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator configured to report JSON field names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStudent checks a student record before it is persisted.
func ValidateStudent(s *Student) error {
	return describe(Validator().Struct(s))
}

// ValidateResult checks an exam result before it is persisted.
func ValidateResult(r *ExamResult) error {
	if err := describe(Validator().Struct(r)); err != nil {
		return err
	}
	for i, sub := range r.Subjects {
		if sub.Credits.IsNegative() {
			return fmt.Errorf("invalid record: subjects[%d].credits must not be negative", i)
		}
	}
	return nil
}

// describe flattens validator errors into a single readable message.
func describe(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Student.")
		field = strings.TrimPrefix(field, "ExamResult.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid record: %s", strings.Join(parts, "; "))
}
