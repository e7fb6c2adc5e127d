package validation

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// BareFilenameTag is the registered name of the validation rule applied to
// user supplied filenames before they ever touch the filesystem.
const BareFilenameTag = "bare_filename"

// New builds the validator used by the HTTP layer, registered with an
// English translator to get clean readable generated error messages from
// validation actions. This massively simplifies returning error messages
// in the future.
func New() (*validator.Validate, ut.Translator, error) {
	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()

	if err := enTranslations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, nil, errors.Wrap(err, "failed to register default translations")
	}

	if err := validate.RegisterValidation(BareFilenameTag, validateBareFilename); err != nil {
		return nil, nil, errors.Wrap(err, "failed to register filename validation")
	}

	translationErr := validate.RegisterTranslation(BareFilenameTag, translator,
		func(ut ut.Translator) error {
			return ut.Add(BareFilenameTag, "{0} must be a plain file name without any directory components", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(BareFilenameTag, fe.Field())
			return t
		})

	if translationErr != nil {
		return nil, nil, errors.Wrap(translationErr, "failed to register filename translation")
	}

	return validate, translator, nil
}

func validateBareFilename(fl validator.FieldLevel) bool {
	return IsBareFilename(fl.Field().String())
}

// IsBareFilename returns true if name is a plain file name that cannot
// escape the directory it is joined onto. Path separators, any `..`
// sequence and rooted paths are all rejected, the name must refer to a
// single file directly inside the target directory.
func IsBareFilename(name string) bool {
	if name == "" || name == "." {
		return false
	}

	if strings.Contains(name, "..") {
		return false
	}

	if strings.ContainsAny(name, `/\`) {
		return false
	}

	if filepath.IsAbs(name) || filepath.Base(name) != name {
		return false
	}

	return true
}

// TranslateError converts the raised validation error into a list of
// human readable reasons using the provided translator.
func TranslateError(err error, trans ut.Translator) (errs []string) {
	if err == nil {
		return nil
	}

	validationErrors := validator.ValidationErrors{}

	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			translatedErr := e.Translate(trans)
			errs = append(errs, translatedErr)
		}
	}

	return errs
}
