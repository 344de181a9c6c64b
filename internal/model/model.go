package model

// This package models the capture session, the fixes it carries and the
// records persisted to the photos collection.

import (
	"fmt"
	"time"
)

type AccuracyTier string

const (
	AccuracyHigh   AccuracyTier = "high"
	AccuracyCoarse AccuracyTier = "coarse"
)

// Position is a single resolved fix. Only the location provider creates
// them; they are passed by value and never modified.
type Position struct {
	Latitude       float64
	Longitude      float64
	Accuracy       AccuracyTier
	AccuracyMeters float64
	ResolvedAt     time.Time
}

func (p Position) Coordinates() *Coordinates {
	return &Coordinates{Lat: p.Latitude, Lon: p.Longitude}
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%g, %g", c.Lat, c.Lon)
}

// MapsURL links to the coordinates in Google Maps.
func (c Coordinates) MapsURL() string {
	return fmt.Sprintf("https://maps.google.com/?q=%g,%g", c.Lat, c.Lon)
}

// ImageRef holds exactly one image representation.
type ImageRef struct {
	URL          string `json:"imageUrl,omitempty"`
	InlineBase64 string `json:"imageBase64,omitempty"`
}

func (r ImageRef) Valid() bool {
	return (r.URL == "") != (r.InlineBase64 == "")
}

// DataURI returns something a viewer can load directly.
func (r ImageRef) DataURI() string {
	if r.InlineBase64 != "" {
		return "data:image/jpeg;base64," + r.InlineBase64
	}
	return r.URL
}

// PhotoRecord is the durable entity. ID and CreatedAt are assigned by the
// record store on write.
type PhotoRecord struct {
	ID          string       `json:"id"`
	Image       ImageRef     `json:"image"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	CreatedAt   time.Time    `json:"timestamp"`
}

// NewRecord is what the upload pipeline hands to a record store.
type NewRecord struct {
	Image       ImageRef
	Coordinates *Coordinates
}

// Session spans one capture through its upload outcome. It is never
// persisted.
type Session struct {
	LocalImagePath string
	Position       *Position
	Uploading      bool
}

// Query parameterizes a snapshot subscription.
type Query struct {
	// NewestFirst orders by creation time descending.
	NewestFirst bool
	// Since bounds membership to records created within the window; zero
	// means unbounded.
	Since time.Duration
}

// Snapshot is the complete result set of a query at one point in time.
type Snapshot struct {
	Records []PhotoRecord
	ReadAt  time.Time
}
