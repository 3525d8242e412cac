// Package notification emails calculation results to operators.
package notification

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
	"time"
)

const subjectLayout = "02/01/2006"

// Additive is one dosage line of a result email.
type Additive struct {
	Name   string
	Volume float64
}

// Summary is everything a result email shows.
type Summary struct {
	CalculationID   string
	Model           string
	MeasurementType string
	LotCount        string
	Density         string
	Refraction      string
	Additives       []Additive
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

var bodyTemplate = template.Must(template.New("result").Funcs(template.FuncMap{
	"volume": func(v float64) string { return fmt.Sprintf("%.7f", v) },
}).Parse(`Calculation ID: {{if .CalculationID}}{{.CalculationID}}{{else}}-{{end}}

Inputs:
- Model: {{.Model}}
- Measurement type: {{.MeasurementType}}
- Lot count: {{.LotCount}}
- Density: {{.Density}}
- Refraction: {{.Refraction}}

Results:
{{- range .Additives}}
- Add {{volume .Volume}} of {{.Name}}
{{- else}}
- No rebalancing needed
{{- end}}
`))

// Subject returns the result email subject for day.
func Subject(day time.Time) string {
	return "EcoWash correction result - " + day.Format(subjectLayout)
}

// Render builds the email for summary, addressed to recipient.
func Render(recipient string, summary Summary, now time.Time) (Message, error) {
	var body bytes.Buffer
	if err := bodyTemplate.Execute(&body, summary); err != nil {
		return Message{}, fmt.Errorf("failed to render result email: %w", err)
	}
	return Message{
		To:      recipient,
		Subject: Subject(now),
		Body:    body.String(),
	}, nil
}

// SortedAdditives turns an additive map into name-ordered dosage lines.
func SortedAdditives(volumes map[string]float64) []Additive {
	additives := make([]Additive, 0, len(volumes))
	for name, v := range volumes {
		additives = append(additives, Additive{Name: name, Volume: v})
	}
	sort.Slice(additives, func(i, j int) bool { return additives[i].Name < additives[j].Name })
	return additives
}
