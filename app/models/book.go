package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BookCategoryLiterature = "Adabiyotlar"
	BookCategoryTextbook   = "Darslik"
	BookCategoryScientific = "Ilmiy"
	BookCategoryAll        = "Barchasi"
)

var BookCategories = []string{
	BookCategoryLiterature,
	BookCategoryTextbook,
	BookCategoryScientific,
	BookCategoryAll,
}

var ResourceTypes = []string{
	"Kitob",
	"Avtoreferat",
	"Monografiya",
	"O'quv qo'llanma",
	"Maqola",
	"Dissertatsiya",
}

// Book is a catalog entry.
type Book struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"type:varchar(255)" json:"title" validate:"required,max=255"`
	Author        string     `gorm:"type:varchar(255)" json:"author" validate:"required,max=255"`
	Description   string     `gorm:"type:text" json:"description"`
	Category      string     `gorm:"type:varchar(50);index;default:'Adabiyotlar'" json:"category" validate:"required,bookcategory"`
	ResourceType  string     `gorm:"type:varchar(50);default:'Kitob'" json:"resource_type" validate:"required,resourcetype"`
	PageCount     int        `gorm:"default:0" json:"page_count" validate:"min=0"`
	PublishedDate *time.Time `gorm:"type:date;default:null" json:"published_date"`
	Subjects      string     `gorm:"type:text" json:"subjects"`
	CoverImage    string     `gorm:"type:varchar(500);default:''" json:"cover_image"`
	File          string     `gorm:"type:varchar(500);default:''" json:"file"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"-"`
}

// SubjectList splits the comma separated subjects.
func (b *Book) SubjectList() []string {
	out := make([]string, 0)
	for _, s := range strings.Split(b.Subjects, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (b *Book) Validate() error {
	v := validator.New()
	_ = v.RegisterValidation("bookcategory", func(fl validator.FieldLevel) bool {
		return contains(BookCategories, fl.Field().String())
	})
	_ = v.RegisterValidation("resourcetype", func(fl validator.FieldLevel) bool {
		return contains(ResourceTypes, fl.Field().String())
	})

	return v.Struct(b)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
