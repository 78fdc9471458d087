package nostd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// CustomValidator echo请求参数校验器，错误信息经翻译后返回
type CustomValidator struct {
	Validator *validator.Validate
	trans     ut.Translator
}

// TransInit 初始化翻译器
func (v *CustomValidator) TransInit() error {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)

	trans, ok := uni.GetTranslator("en")
	if !ok {
		return fmt.Errorf("failed to get translator")
	}
	v.trans = trans

	return enTranslations.RegisterDefaultTranslations(v.Validator, trans)
}

// Validate 校验请求结构体
func (v *CustomValidator) Validate(i interface{}) error {
	if err := v.Validator.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && v.trans != nil {
			messages := make([]string, 0, len(ve))
			for _, fe := range ve {
				messages = append(messages, fe.Translate(v.trans))
			}
			return fmt.Errorf("%s", strings.Join(messages, "; "))
		}
		return err
	}
	return nil
}
