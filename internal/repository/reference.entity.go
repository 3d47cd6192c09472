package repository

type TagEntity struct {
	ID    int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Label string `gorm:"column:tag;not null;uniqueIndex"`
}

func (TagEntity) TableName() string { return "tags" }

type PhoneCodeEntity struct {
	ID   int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Code string `gorm:"column:phone_code;not null;uniqueIndex"`
}

func (PhoneCodeEntity) TableName() string { return "phone_codes" }

type TimezoneEntity struct {
	ID   int64  `gorm:"primaryKey;autoIncrement;column:id"`
	Name string `gorm:"column:timezone;not null;uniqueIndex"`
}

func (TimezoneEntity) TableName() string { return "timezones" }
