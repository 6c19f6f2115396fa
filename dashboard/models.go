// Package dashboard persists dashboard documents and renders the widgets
// placed on them.
package dashboard

import (
	"context"
	"time"

	"github.com/timzifer/dashwidget/widget"
)

// DateRange is the period a dashboard shows.
type DateRange struct {
	Enabled bool   `json:"enabled" firestore:"enabled"`
	Start   string `json:"start,omitempty" firestore:"start,omitempty"`
	End     string `json:"end,omitempty" firestore:"end,omitempty"`
}

// Currency pins the currency cost widgets are shown in.
type Currency struct {
	Enabled bool   `json:"enabled" firestore:"enabled"`
	Value   string `json:"value,omitempty" firestore:"value,omitempty"`
}

// Settings holds dashboard-wide display settings.
type Settings struct {
	DateRange DateRange `json:"date_range" firestore:"date_range"`
	Currency  Currency  `json:"currency" firestore:"currency"`
}

// WidgetInfo is a widget placed on a dashboard.
type WidgetInfo struct {
	WidgetName       string                `json:"widget_name" firestore:"widget_name"`
	WidgetKey        string                `json:"widget_key" firestore:"widget_key"`
	Title            string                `json:"title,omitempty" firestore:"title,omitempty"`
	WidgetOptions    widget.Options        `json:"widget_options,omitempty" firestore:"widget_options,omitempty"`
	Size             widget.Size           `json:"size,omitempty" firestore:"size,omitempty"`
	Version          string                `json:"version" firestore:"version"`
	InheritOptions   widget.InheritOptions `json:"inherit_options,omitempty" firestore:"inherit_options,omitempty"`
	SchemaProperties []string              `json:"schema_properties,omitempty" firestore:"schema_properties,omitempty"`
}

// Layout groups widgets shown together.
type Layout struct {
	Name    string       `json:"name,omitempty" firestore:"name,omitempty"`
	Widgets []WidgetInfo `json:"widgets" firestore:"widgets"`
}

// Dashboard is the stored dashboard document.
type Dashboard struct {
	DashboardID     string                    `json:"dashboard_id" firestore:"dashboard_id"`
	Name            string                    `json:"name" firestore:"name"`
	Labels          []string                  `json:"labels,omitempty" firestore:"labels,omitempty"`
	Layouts         []Layout                  `json:"layouts" firestore:"layouts"`
	Variables       widget.DashboardVariables `json:"variables,omitempty" firestore:"variables,omitempty"`
	VariablesSchema widget.VariablesSchema    `json:"variables_schema" firestore:"variables_schema"`
	Settings        Settings                  `json:"settings" firestore:"settings"`
	CreatedAt       time.Time                 `json:"created_at" firestore:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at" firestore:"updated_at"`
}

// Widget returns the widget with the given key and its position.
func (d *Dashboard) Widget(key string) (WidgetInfo, int, int, bool) {
	for li, layout := range d.Layouts {
		for wi, info := range layout.Widgets {
			if info.WidgetKey == key {
				return info, li, wi, true
			}
		}
	}
	return WidgetInfo{}, -1, -1, false
}

// Widgets returns every widget in layout order.
func (d *Dashboard) Widgets() []WidgetInfo {
	var out []WidgetInfo
	for _, layout := range d.Layouts {
		out = append(out, layout.Widgets...)
	}
	return out
}

// Store persists dashboard documents.
type Store interface {
	Create(ctx context.Context, d *Dashboard) error
	Get(ctx context.Context, dashboardID string) (*Dashboard, error)
	List(ctx context.Context) ([]*Dashboard, error)
	Update(ctx context.Context, d *Dashboard) error
	Delete(ctx context.Context, dashboardID string) error
}
