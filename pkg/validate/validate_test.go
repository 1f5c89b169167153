package validate_test

import (
	"strings"
	"testing"

	"github.com/modera-shop/modera/pkg/validate"
)

type productInput struct {
	Name     string  `json:"name"      validate:"required,max=120"`
	Image    string  `json:"image"     validate:"nullable,min=5"`
	Category string  `json:"category"  validate:"required,max=16"`
	NewPrice float64 `json:"new_price" validate:"required,gte=0"`
	OldPrice float64 `json:"old_price" validate:"gte=0"`
}

type signupInput struct {
	Username string `json:"username" validate:"required,min=2"`
	Email    string `json:"email"    validate:"required,email"`
	ClientID string `json:"clientId" validate:"nullable,alpha_dash,max=8"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(productInput{
		Name:     "Striped blouse",
		Image:    "https://cdn.example.com/p1.png",
		Category: "women",
		NewPrice: 50,
		OldPrice: 80.5,
	})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(&productInput{})
	for _, field := range []string{"name", "category", "new_price"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected error for %s, got %v", field, errs)
		}
	}
	if _, ok := errs["image"]; ok {
		t.Errorf("nullable image should not fail: %v", errs)
	}
}

func TestNumericBounds(t *testing.T) {
	errs := validate.Struct(productInput{Name: "x", Category: "men", NewPrice: 1, OldPrice: -2})
	if errs["old_price"] != "The old_price must be greater than or equal to 0." {
		t.Errorf("unexpected message: %q", errs["old_price"])
	}
}

func TestNullableSkipsOnlyWhenEmpty(t *testing.T) {
	errs := validate.Struct(productInput{Name: "x", Category: "men", NewPrice: 1, Image: "a"})
	if _, ok := errs["image"]; !ok {
		t.Error("expected min error for a short image")
	}
}

type passwordInput struct {
	Password string `json:"password" validate:"required,max=72,max_bytes=72"`
}

func TestMaxBytesCountsBytes(t *testing.T) {
	wide := strings.Repeat("你", 30) // 30 characters, 90 bytes
	errs := validate.Struct(passwordInput{Password: wide})
	if errs["password"] != "The password must not exceed 72 bytes." {
		t.Errorf("unexpected message: %q", errs["password"])
	}
	if errs := validate.Struct(passwordInput{Password: strings.Repeat("a", 72)}); validate.HasErrors(errs) {
		t.Errorf("72 ASCII bytes should pass: %v", errs)
	}
}

func TestStringRules(t *testing.T) {
	cases := []struct {
		in    signupInput
		field string
	}{
		{signupInput{Username: "a", Email: "a@b.io"}, "username"},
		{signupInput{Username: "ab", Email: "nope"}, "email"},
		{signupInput{Username: "ab", Email: "a@b.io", ClientID: "bad id"}, "clientId"},
		{signupInput{Username: "ab", Email: "a@b.io", ClientID: "toolong-id"}, "clientId"},
	}
	for _, tc := range cases {
		errs := validate.Struct(tc.in)
		if _, ok := errs[tc.field]; !ok || len(errs) != 1 {
			t.Errorf("%+v: expected only %s to fail, got %v", tc.in, tc.field, errs)
		}
	}

	if errs := validate.Struct(signupInput{Username: "ab", Email: "a@b.io", ClientID: "tab_1-a"}); validate.HasErrors(errs) {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestNonStruct(t *testing.T) {
	if validate.HasErrors(validate.Struct("plain")) {
		t.Error("non-struct input should yield no errors")
	}
}
