package api

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/ecolink-dev/ecolink/internal/model"
)

// 行动类别白名单
var allowedCategories = map[string]bool{
	"limpieza":      true,
	"reciclaje":     true,
	"reforestacion": true,
	"educacion":     true,
	"otro":          true,
}

// RegisterValidators 注册 binding 自定义校验（ecorole / category）
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("ecorole", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case model.RoleCitizen, model.RoleOrganization, model.RoleAdmin:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return allowedCategories[fl.Field().String()]
	})
}
