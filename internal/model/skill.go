package model

import "time"

// Category is the subject area a skill belongs to.
type Category string

const (
	CategoryProgramming Category = "programming"
	CategoryDesign      Category = "design"
	CategoryMarketing   Category = "marketing"
	CategoryLanguages   Category = "languages"
	CategoryMusic       Category = "music"
	CategoryCooking     Category = "cooking"
	CategoryOther       Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryProgramming,
	CategoryDesign,
	CategoryMarketing,
	CategoryLanguages,
	CategoryMusic,
	CategoryCooking,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Level is how proficient the owner is in the skill they offer.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelExpert       Level = "expert"
)

var Levels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced, LevelExpert}

func (l Level) Valid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}

// Skill is a teachable capability listed by a user.
//
// OwnerName is not a column of the skills table; it is filled by a join on
// users when skills are listed so clients can show who teaches what.
type Skill struct {
	ID          string    `json:"id"          db:"id"`
	OwnerID     string    `json:"ownerId"     db:"owner_id"`
	OwnerName   string    `json:"ownerName,omitempty" db:"owner_name"`
	Name        string    `json:"name"        db:"name"`
	Description string    `json:"description" db:"description"`
	Category    Category  `json:"category"    db:"category"`
	Level       Level     `json:"level"       db:"level"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
