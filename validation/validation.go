package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator"

	"rummage/logger"
)

type Validator struct {
	validator *validator.Validate
	logger    logger.Logger
	tagErrors map[string]error
}

func New(logger logger.Logger) (*Validator, error) {
	v := &Validator{
		validator: validator.New(),
		logger:    logger,
		tagErrors: make(map[string]error),
	}
	v.validator.RegisterTagNameFunc(useJSONFieldNames)

	customValidators := []struct {
		tag           string
		validatorFunc validator.Func
		err           error
	}{
		{tag: "valid_path", validatorFunc: v.isValidPath, err: errors.New("invalid path")},
		{tag: "valid_query", validatorFunc: v.isValidQuery, err: errors.New("invalid query")},
	}

	for _, custom := range customValidators {
		if err := v.validator.RegisterValidation(custom.tag, custom.validatorFunc); err != nil {
			v.logger.Error("failed to register custom validator function", "tag", custom.tag, "err", err.Error())
			return nil, err
		}
		v.tagErrors[custom.tag] = custom.err
	}

	return v, nil
}

func (v *Validator) Validate(i any) error {

	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	v.logger.Warn("validation failed", "err", err.Error())

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}

	if tagErr, ok := v.tagErrors[validationErrs[0].Tag()]; ok {
		return tagErr
	}

	switch validationErrs[0].Tag() {
	case "required":
		return fmt.Errorf("missing required field '%s'", validationErrs[0].Field())
	case "min", "max":
		return fmt.Errorf("value or length of field '%s' is not in the expected range", validationErrs[0].Field())
	}

	return err
}

func useJSONFieldNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func (v *Validator) isValidPath(fl validator.FieldLevel) bool {
	inputPath := fl.Field().String()

	if strings.TrimSpace(inputPath) == "" {
		v.logger.Warn("validation path is empty", "path", inputPath)
		return false
	}

	if strings.Contains(inputPath, "\x00") {
		v.logger.Warn("validation path has null byte", "path", inputPath)
		return false
	}

	if !filepath.IsAbs(inputPath) {
		v.logger.Warn("validation path is not absolute", "path", inputPath)
		return false
	}

	if _, err := os.Stat(inputPath); err != nil {
		v.logger.Info("path does not exist", "path", inputPath)
		return false
	}

	return true
}

func (v *Validator) isValidQuery(fl validator.FieldLevel) bool {
	query := fl.Field().String()
	if strings.TrimSpace(query) == "" {
		v.logger.Warn("query is empty", "query", query)
		return false
	}

	return true
}
