package stage

// Form is the editable data of one stage as presented to a validator.
type Form struct {
	Type      string    `json:"type" validate:"required"`
	Label     string    `json:"label" validate:"required,max=200"`
	X         float64   `json:"x" validate:"gte=0,lte=100"`
	Y         float64   `json:"y" validate:"gte=0,lte=100"`
	Width     float64   `json:"width" validate:"gt=0,lte=100"`
	Height    float64   `json:"height" validate:"gt=0,lte=100"`
	Neighbors Neighbors `json:"neighbors" validate:"dive,gte=0"`
}

// FormOf returns the form data of n.
func FormOf(n Node) Form {
	return Form{
		Type:      n.Type,
		Label:     n.Label,
		X:         n.Telemetry.X,
		Y:         n.Telemetry.Y,
		Width:     n.Telemetry.Width,
		Height:    n.Telemetry.Height,
		Neighbors: n.Clone().Neighbors,
	}
}
