package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lanlhvn/location-assignment/internal/model"
)

// locationFields 持久化前需满足的字段约束
// 与 HTTP 层 binding 规则一致，服务层独立校验，不依赖调用方已校验
type locationFields struct {
	Building       string `json:"building"        validate:"required,min=1,max=20"`
	LocationName   string `json:"location_name"   validate:"required,min=3,max=60"`
	LocationNumber string `json:"location_number" validate:"required,min=3,max=20"`
	Area           string `json:"area"            validate:"required,min=3,max=20"`
}

var locationValidate = newLocationValidator()

func newLocationValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateLocation 校验字段长度（按字符数计）；失败返回包装了 ErrInvalidLocation 的错误
func validateLocation(loc *model.Location) error {
	err := locationValidate.Struct(locationFields{
		Building:       loc.Building,
		LocationName:   loc.LocationName,
		LocationNumber: loc.LocationNumber,
		Area:           loc.Area,
	})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			details = append(details, fe.Field()+" 不能为空")
		case "min":
			details = append(details, fmt.Sprintf("%s 长度不能少于 %s", fe.Field(), fe.Param()))
		case "max":
			details = append(details, fmt.Sprintf("%s 长度不能超过 %s", fe.Field(), fe.Param()))
		default:
			details = append(details, fe.Field()+" 无效")
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidLocation, strings.Join(details, "; "))
}
