package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const MsgInternalError = "Internal server error"

type Metadata struct {
	Page          int   `json:"page"`
	Limit         int   `json:"limit"`
	CurrentPage   int   `json:"currentPage"`
	TotalFiltered int   `json:"totalFiltered"`
	Total         int64 `json:"total"`
}

type Response struct {
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Metadata   *Metadata   `json:"metadata,omitempty"`
}

// StatusError is an error that knows the HTTP status it should be reported with.
type StatusError interface {
	error
	HTTPStatus() int
}

func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Message:    message,
		StatusCode: http.StatusOK,
		Data:       data,
	})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Message:    message,
		StatusCode: http.StatusCreated,
		Data:       data,
	})
}

// Page writes one page of a list. filtered is the number of items on it.
func Page(c *gin.Context, message string, data interface{}, filtered, page, limit int, total int64) {
	c.JSON(http.StatusOK, Response{
		Message:    message,
		StatusCode: http.StatusOK,
		Data:       data,
		Metadata: &Metadata{
			Page:          page,
			Limit:         limit,
			CurrentPage:   page,
			TotalFiltered: filtered,
			Total:         total,
		},
	})
}

func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Message:    message,
		StatusCode: status,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

func ServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, MsgInternalError)
}

// FromError reports err with its own status when it carries one and as an
// internal error otherwise. It returns true when err was unexpected.
func FromError(c *gin.Context, err error) bool {
	var se StatusError
	if errors.As(err, &se) {
		Error(c, se.HTTPStatus(), se.Error())
		return false
	}
	ServerError(c)
	return true
}
