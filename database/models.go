package database

import "time"

// PilotOnline is one in-scope flight from the latest poll.
type PilotOnline struct {
	ID            uint   `gorm:"primaryKey"`
	CID           int    `gorm:"column:cid;index"`
	Name          string `gorm:"size:255"`
	Callsign      string `gorm:"size:16;index"`
	Aircraft      string `gorm:"size:32"`
	Departure     string `gorm:"column:dep;size:8"`
	Destination   string `gorm:"column:dest;size:8"`
	Code          int
	Latitude      float64 `gorm:"column:lat"`
	Longitude     float64 `gorm:"column:lng"`
	Altitude      int
	Heading       int
	Speed         int
	PlannedCruise int    `gorm:"column:planned_cruise"`
	Route         string `gorm:"type:text"`
	Remarks       string `gorm:"type:text"`
}

func (PilotOnline) TableName() string {
	return "pilots_online"
}

// AtcOnline is one in-scope controller position from the latest poll.
type AtcOnline struct {
	ID        uint   `gorm:"primaryKey"`
	CID       int    `gorm:"column:cid;index"`
	Name      string `gorm:"size:255"`
	Rating    int
	Position  string    `gorm:"column:pos;size:16"`
	TimeStart time.Time `gorm:"column:time_start"`
	Atis      string    `gorm:"type:text"`
	Frequency string    `gorm:"size:8"`
}

func (AtcOnline) TableName() string {
	return "atc_online"
}

// AtisOnline is one in-scope ATIS broadcast from the latest poll.
type AtisOnline struct {
	ID        uint   `gorm:"primaryKey"`
	CID       int    `gorm:"column:cid"`
	Airport   string `gorm:"size:4;index"`
	Callsign  string `gorm:"size:16"`
	Code      string `gorm:"size:2"`
	Frequency string `gorm:"size:8"`
	Text      string `gorm:"type:text"`
	TimeStart time.Time
}

func (AtisOnline) TableName() string {
	return "atis_online"
}

// ControllerHours is one continuous controller session, keyed by controller
// and logon time.
type ControllerHours struct {
	ID        uint      `gorm:"primaryKey"`
	CID       int       `gorm:"column:cid;uniqueIndex:idx_session"`
	TimeStart time.Time `gorm:"column:time_start;uniqueIndex:idx_session"`
	TimeEnd   time.Time `gorm:"column:time_end"`
	Position  string    `gorm:"size:16"`
}

func (ControllerHours) TableName() string {
	return "controller_hours"
}

type Pirep struct {
	ID          uint      `gorm:"primaryKey"`
	ReportTime  time.Time `gorm:"index"`
	Location    string    `gorm:"size:8"`
	Aircraft    string    `gorm:"size:16"`
	FlightLevel string    `gorm:"size:16"`
	SkyCond     string    `gorm:"size:64"`
	Turbulence  string    `gorm:"size:64"`
	Icing       string    `gorm:"size:64"`
	Vis         string    `gorm:"size:16"`
	Temp        string    `gorm:"size:8"`
	Wind        string    `gorm:"size:16"`
	Urgent      bool
	Raw         string `gorm:"type:text"`
	Manual      bool   `gorm:"index"`
}

func (Pirep) TableName() string {
	return "pireps"
}
