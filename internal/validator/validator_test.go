package validator

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
	Setup()
}

func formContext(values url.Values) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.Request = req
	return c
}

func TestBindForm(t *testing.T) {
	var req model.LoginRequest
	fields := BindForm(formContext(url.Values{"email": {"ana@example.com"}, "password": {"excel2019!"}}), &req)

	assert.Nil(t, fields)
	assert.Equal(t, "ana@example.com", req.Email)
}

func TestBindFormTranslatesErrors(t *testing.T) {
	var req model.LoginRequest
	fields := BindAny(formContext(url.Values{"email": {"not-an-email"}}), &req)

	assert.Contains(t, fields, "email")
	assert.Contains(t, fields["email"], "valid email")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields["password"], "required")
}

func TestValidate(t *testing.T) {
	fields := Validate(&model.CreateUserRequest{
		Email: "mark@example.com", FirstName: "Mark", LastName: "Cruz", Role: "janitor", Password: "long-enough",
	})

	assert.Contains(t, fields, "role")
	assert.Nil(t, Validate(&model.CreateUserRequest{
		Email: "mark@example.com", FirstName: "Mark", LastName: "Cruz", Role: model.RoleInstructor, Password: "long-enough",
	}))
}
