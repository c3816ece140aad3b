package entity

import "cloud.google.com/go/civil"

// Chart is a finished single-day series handed to the renderer.
type Chart struct {
	Symbol string
	Date   civil.Date
	Bars   []Bar
}
