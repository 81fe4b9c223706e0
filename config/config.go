package config

import (
	"fmt"
	"log"
	"os"

	"backend/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB loads the environment, opens the database and migrates the schema.
// The handle is returned rather than kept as a package global so services
// receive it explicitly.
func InitDB() *gorm.DB {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	if err := SeedFoodCatalog(db); err != nil {
		log.Fatalf("Catalog seed failed: %v", err)
	}

	return db
}

// Migrate creates/updates the schema. Split out so tests can run it against
// their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserDevice{},
		&models.FoodReference{},
		&models.MealEntry{},
		&models.MealEntryItem{},
		&models.CharacterProgression{},
		&models.Subscription{},
		&models.RefundRecord{},
	)
}

// SeedFoodCatalog loads the built-in reference catalog. Idempotent: existing
// names are left untouched.
func SeedFoodCatalog(db *gorm.DB) error {
	for _, f := range defaultCatalog {
		entry := f
		if err := db.Where("name = ?", entry.Name).FirstOrCreate(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}

// Built-in catalog: NOVA grades with macro snapshots per typical portion.
var defaultCatalog = []models.FoodReference{
	// NOVA 1 (unprocessed / minimally processed)
	{Name: "brown rice", NovaGrade: 1, Carb: 38, Protein: 3, Fat: 0.5, Calories: 170},
	{Name: "multigrain rice", NovaGrade: 1, Carb: 37, Protein: 3.5, Fat: 0.8, Calories: 165},
	{Name: "chicken breast", NovaGrade: 1, Carb: 0, Protein: 23, Fat: 1.2, Calories: 109},
	{Name: "salmon", NovaGrade: 1, Carb: 0, Protein: 20, Fat: 12, Calories: 182},
	{Name: "boiled egg", NovaGrade: 1, Carb: 0.6, Protein: 13, Fat: 11, Calories: 155},
	{Name: "tofu", NovaGrade: 1, Carb: 2, Protein: 8, Fat: 4, Calories: 76},
	{Name: "broccoli", NovaGrade: 1, Carb: 7, Protein: 3, Fat: 0.4, Calories: 34},
	{Name: "sweet potato", NovaGrade: 1, Carb: 20, Protein: 1.6, Fat: 0.1, Calories: 90},
	{Name: "banana", NovaGrade: 1, Carb: 23, Protein: 1.1, Fat: 0.3, Calories: 89},
	// NOVA 2 (processed culinary ingredients)
	{Name: "white rice", NovaGrade: 2, Carb: 40, Protein: 3, Fat: 0.3, Calories: 168},
	{Name: "olive oil", NovaGrade: 2, Carb: 0, Protein: 0, Fat: 14, Calories: 120},
	{Name: "salt", NovaGrade: 2},
	// Fermented (NOVA 2 but bonus applies)
	{Name: "kimchi", NovaGrade: 2, Carb: 3, Protein: 1.5, Fat: 0.5, Calories: 15, Fermented: true},
	{Name: "doenjang", NovaGrade: 2, Carb: 9, Protein: 9, Fat: 3, Calories: 85, Fermented: true},
	{Name: "cheonggukjang", NovaGrade: 2, Carb: 5, Protein: 11, Fat: 4, Calories: 90, Fermented: true},
	// NOVA 3 (processed foods)
	{Name: "cheese", NovaGrade: 3, Carb: 1.3, Protein: 25, Fat: 33, Calories: 400},
	{Name: "canned tuna", NovaGrade: 3, Carb: 0, Protein: 25, Fat: 8, Calories: 180},
	{Name: "gochujang", NovaGrade: 3, Carb: 15, Protein: 3, Fat: 1, Calories: 50, Fermented: true},
	// NOVA 4 (ultra-processed)
	{Name: "instant ramen", NovaGrade: 4, Carb: 60, Protein: 9, Fat: 15, Calories: 415, Sodium: 1700, TransFat: 0.5},
	{Name: "cookies", NovaGrade: 4, Carb: 65, Protein: 4, Fat: 20, Calories: 450, Sugar: 20},
	{Name: "soda", NovaGrade: 4, Carb: 35, Protein: 0, Fat: 0, Calories: 140, Sugar: 35},
	{Name: "hamburger", NovaGrade: 4, Carb: 43, Protein: 17, Fat: 20, Calories: 420, Sodium: 800},
}
