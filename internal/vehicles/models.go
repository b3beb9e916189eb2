package vehicles

import "time"

// Vehicle is an EV whose charging sessions feed emission reports. OwnerID is
// nil for vehicles that appear in charging data but were never claimed by a
// registered account; their contribution is recorded but not payable.
type Vehicle struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Plate     string    `gorm:"not null;uniqueIndex" json:"plate"`
	Model     string    `json:"model"`
	OwnerID   *int64    `gorm:"index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Vehicle) TableName() string {
	return "vehicles"
}
