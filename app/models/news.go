package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var NewsCategories = []string{
	"Yangilik",
	"E'lon",
	"Tadbir",
	"Yangi",
	"Texnik",
	"Xizmat",
}

// News represents a news article in the system
type News struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(255)" json:"title" validate:"required,max=255"`
	Description string    `gorm:"type:text" json:"description" validate:"required"`
	Image       string    `gorm:"type:varchar(500);default:''" json:"image"`
	Date        time.Time `gorm:"type:date;index" json:"date"`
	Category    string    `gorm:"type:varchar(20);default:'Yangilik'" json:"category" validate:"required,newscategory"`
	Author      string    `gorm:"type:varchar(50);default:'Admin'" json:"author" validate:"max=50"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the News model
func (News) TableName() string {
	return "news"
}

func (n *News) Validate() error {
	v := validator.New()
	_ = v.RegisterValidation("newscategory", func(fl validator.FieldLevel) bool {
		return contains(NewsCategories, fl.Field().String())
	})

	return v.Struct(n)
}
