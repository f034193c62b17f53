package vatsim

import "time"

type Data struct {
	Controllers []Controller `json:"controllers"`
	Pilots      []Pilot      `json:"pilots"`
	Atis        []Atis       `json:"atis"`
}

type Controller struct {
	CID       int       `json:"cid"`
	Name      string    `json:"name"`
	Callsign  string    `json:"callsign"`
	Frequency string    `json:"frequency"`
	Facility  int       `json:"facility"`
	Rating    int       `json:"rating"`
	TextAtis  []string  `json:"text_atis"`
	LogonTime time.Time `json:"logon_time"`
}

type Pilot struct {
	CID         int         `json:"cid"`
	Callsign    string      `json:"callsign"`
	Name        string      `json:"name"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Altitude    int         `json:"altitude"`
	Groundspeed int         `json:"groundspeed"`
	Heading     int         `json:"heading"`
	FlightPlan  *FlightPlan `json:"flight_plan"`
}

type FlightPlan struct {
	Aircraft  string `json:"aircraft_faa"`
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	Altitude  string `json:"altitude"`
	Route     string `json:"route"`
	Remarks   string `json:"remarks"`
}

type Atis struct {
	CID       int       `json:"cid"`
	Callsign  string    `json:"callsign"`
	Frequency string    `json:"frequency"`
	AtisCode  string    `json:"atis_code"`
	TextAtis  []string  `json:"text_atis"`
	LogonTime time.Time `json:"logon_time"`
}
