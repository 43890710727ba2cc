package validator

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once   sync.Once
	engine *govalidator.Validate
	trans  ut.Translator
)

// Configure makes v report JSON field names and registers English
// translations for it. It returns the translator bound to v.
func Configure(v *govalidator.Validate) ut.Translator {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	t, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, t)
	return t
}

func setup() {
	once.Do(func() {
		engine = govalidator.New(govalidator.WithRequiredStructEnabled())
		trans = Configure(engine)
	})
}

// Struct validates the `validate` tags of s.
func Struct(s any) error {
	setup()
	return engine.Struct(s)
}

// Translate maps a validation error to field name → message using t. A
// non-validation error yields a single "detail" entry.
func Translate(err error, t ut.Translator) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if t != nil {
				fields[fe.Field()] = fe.Translate(t)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// TranslateErrors translates errors produced by Struct.
func TranslateErrors(err error) map[string]string {
	setup()
	return Translate(err, trans)
}

// Summary flattens TranslateErrors output into one sentence, fields sorted.
func Summary(err error) string {
	fields := TranslateErrors(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fields[k])
	}
	return strings.Join(parts, "; ")
}
