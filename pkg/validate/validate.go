// Package validate 封装 go-playground/validator 单例，把校验失败转换为 core 的 ValidationError。
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/rushteam/artrec/core"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Get 返回全局校验器（线程安全，缓存结构体信息）。
// 字段名优先使用 json tag，其次 koanf tag。
func Get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "koanf"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
	return instance
}

// Struct 校验结构体，只报告第一个失败字段。
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return core.NewValidationError("request", err.Error())
	}
	fe := fieldErrs[0]
	return core.NewValidationError(fieldPath(fe), message(fe))
}

// fieldPath 去掉顶层结构体名，例如 "Config.store.backend" → "store.backend"。
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "gte", "min":
		return "must be >= " + fe.Param()
	case "lte", "max":
		return "must be <= " + fe.Param()
	case "gt":
		return "must be > " + fe.Param()
	case "gtefield":
		return "must be >= " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
