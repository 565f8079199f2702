package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"
)

var validate *validator.Validate

var translator ut.Translator

var expiryRE = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)

func init() {

	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	translator, _ = ut.New(en.New(), en.New()).GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryRE.MatchString(fl.Field().String())
	})
	validate.RegisterTranslation("expiry", translator,
		func(ut ut.Translator) error {
			return ut.Add("expiry", "{0} must be a MM/YY date", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("expiry", fe.Field())
			return t
		},
	)
}

// Check returns the first failed rule of val as a readable error.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {

		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		if len(verrors) < 1 {
			return nil
		}

		return errors.New(verrors[0].Translate(translator))
	}

	return nil
}

// Fields returns every failed rule of val keyed by the field's json name.
// A nil map means val is valid.
func Fields(val any) (map[string]string, error) {
	err := validate.Struct(val)
	if err == nil {
		return nil, nil
	}

	verrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}

	fields := make(map[string]string, len(verrors))
	for _, fe := range verrors {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fe.Translate(translator)
	}
	return fields, nil
}

func GenerateID() string {
	return uuid.NewString()
}

func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("ID is not in its proper form")
	}
	return nil
}
