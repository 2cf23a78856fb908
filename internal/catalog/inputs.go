package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxTitleLength = 512

// AddBookInput carries a new book. Only Title is required. ExternalID and
// GoogleBooksID are aliases; ExternalID wins when both are present.
type AddBookInput struct {
	Title         string  `json:"title" validate:"notblank,max=512"`
	ISBN          *string `json:"isbn" validate:"omitempty,max=20"`
	Description   *string `json:"description"`
	PublishedDate *Date   `json:"publishedDate"`
	PageCount     *int    `json:"pageCount" validate:"omitempty,min=0"`
	Thumbnail     *string `json:"thumbnail" validate:"omitempty,max=2048"`
	Language      *string `json:"language" validate:"omitempty,max=16"`
	ExternalID    *string `json:"externalId" validate:"omitempty,max=64"`
	GoogleBooksID *string `json:"googleBooksId" validate:"omitempty,max=64"`
	AuthorIDs     []uint  `json:"authorIds"`
	CategoryIDs   []uint  `json:"categoryIds"`
}

// UpdateBookInput is a partial patch. Absent fields are left alone and null
// clears an optional field.
type UpdateBookInput struct {
	Title         Optional[string] `json:"title"`
	ISBN          Optional[string] `json:"isbn"`
	Description   Optional[string] `json:"description"`
	PublishedDate Optional[Date]   `json:"publishedDate"`
	PageCount     Optional[int]    `json:"pageCount"`
	Thumbnail     Optional[string] `json:"thumbnail"`
	Language      Optional[string] `json:"language"`
}

// NameInput is the body of author and category creation.
type NameInput struct {
	Name string `json:"name" validate:"notblank,max=256"`
}

type ImportInput struct {
	ExternalID string `json:"externalId" validate:"notblank,max=64"`
}

// Validate checks the volume id. Callers trim it first.
func (in ImportInput) Validate() error {
	return validateStruct(in)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// validateStruct runs the struct tags and converts failures into a
// ValidationError keyed by JSON field name.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = describeTag(fe)
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// Validate checks the supplied fields of a patch. A null or blank title is
// rejected because every book needs one.
func (in UpdateBookInput) Validate() error {
	fields := map[string]string{}

	if in.Title.Set {
		switch {
		case in.Title.Null || strings.TrimSpace(in.Title.Value) == "":
			fields["title"] = "is required"
		case len(in.Title.Value) > maxTitleLength:
			fields["title"] = fmt.Sprintf("must be at most %d characters", maxTitleLength)
		}
	}
	if in.PageCount.Set && !in.PageCount.Null && in.PageCount.Value < 0 {
		fields["pageCount"] = "must be at least 0"
	}
	checkLength(fields, "isbn", in.ISBN, 20)
	checkLength(fields, "thumbnail", in.Thumbnail, 2048)
	checkLength(fields, "language", in.Language, 16)

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func checkLength(fields map[string]string, name string, o Optional[string], max int) {
	if o.Set && !o.Null && len(o.Value) > max {
		fields[name] = fmt.Sprintf("must be at most %d characters", max)
	}
}

// externalID resolves the provider id alias; blank means none.
func (in AddBookInput) externalID() *string {
	id := in.ExternalID
	if id == nil {
		id = in.GoogleBooksID
	}
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}
