// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"domain-copilot-api/pkg/errors"
)

// ErrorResponse 错误响应结构，error 为面向用户的文本
type ErrorResponse struct {
	Error   string           `json:"error"`
	Code    errors.ErrorCode `json:"code,omitempty"`
	TraceID string           `json:"trace_id,omitempty"`
}

// MessageResponse 只含提示文本的响应
type MessageResponse struct {
	Message string `json:"message"`
}

// OK 返回 200
func OK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// Created 返回 201
func Created(c *gin.Context, body any) {
	c.JSON(http.StatusCreated, body)
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, code errors.ErrorCode, message string) {
	c.JSON(httpCode, ErrorResponse{
		Error:   message,
		Code:    code,
		TraceID: c.GetString("trace_id"),
	})
}

// AppError 按 AppError 的状态码返回
func AppError(c *gin.Context, err *errors.AppError) {
	Error(c, err.HTTPStatus, err.Code, err.Message)
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, errors.CodeInvalidParam, message)
}

// NotFound 返回 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, errors.CodeProjectNotFound, message)
}

// Conflict 返回 409 错误
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, errors.CodeConflict, message)
}

// InternalError 返回 500 错误，细节只写日志
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, errors.CodeInternalError, errors.ErrInternalError.Message)
}
