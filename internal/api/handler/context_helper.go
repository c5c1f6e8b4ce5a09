package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lanlhvn/location-assignment/pkg/response"
)

// MustParseID 从路径参数中解析正整数 ID。
// 解析失败时写入 400 响应并返回 false，调用方应直接 return。
func MustParseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", param+" 必须为正整数")
		return 0, false
	}
	return uint(id), true
}

// MustBindJSON 绑定并校验 JSON 请求体。
// 请求体超限返回 413，其余绑定失败返回 400；失败时返回 false。
func MustBindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.RequestEntityTooLarge(c)
		return false
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
	return false
}
