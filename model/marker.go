package model

type Dot struct {
	Key   string `json:"key"`
	Color string `json:"color"`
}

// DayMarker describes how one calendar day is drawn.
type DayMarker struct {
	Date          string `json:"date"`
	Marked        bool   `json:"marked"`
	Dots          []Dot  `json:"dots"`
	Selected      bool   `json:"selected"`
	SelectedColor string `json:"selectedColor"`
}
