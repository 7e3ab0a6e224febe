package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/iliyamo/flight-booking/internal/model"
)

var bookingHTML = htmltemplate.Must(htmltemplate.New("booking").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.5">
  <h2>Booking Created</h2>
  <p><b>PNR:</b> {{.PNR}}</p>
  <p><b>Route:</b> {{.Dep}} &rarr; {{.Arr}}</p>
  <p><b>Seats:</b> {{.Seats}}</p>
  <p><b>Extra legroom:</b> {{.Legroom}}</p>
  <p><b>Extra luggage:</b> {{.LuggageKg}} kg</p>
  <p><b>Amount:</b> {{.Amount}}</p>
  <p>Complete your payment to confirm.</p>
</div>
`))

var bookingText = texttemplate.Must(texttemplate.New("booking").Parse(`Booking created. PNR: {{.PNR}}
Route: {{.Dep}} -> {{.Arr}}
Seats: {{.Seats}}
Extra legroom: {{.Legroom}}
Extra luggage: {{.LuggageKg}} kg
Amount: {{.Amount}}
Complete your payment to confirm.
`))

type bookingView struct {
	PNR       string
	Dep, Arr  string
	Seats     string
	Legroom   string
	LuggageKg int
	Amount    string
}

// BookingCreated renders the confirmation email for b.
func BookingCreated(b model.Booking) (subject, html, text string, err error) {
	v := bookingView{
		PNR:       b.PNR,
		Dep:       b.Flight.DepIata,
		Arr:       b.Flight.ArrIata,
		Seats:     "Not selected",
		Legroom:   "No",
		LuggageKg: b.AddOns.ExtraLuggageKg,
		Amount:    formatAmount(b.Currency, b.Amount),
	}
	if len(b.Seats) > 0 {
		v.Seats = strings.Join(b.Seats, ", ")
	}
	if b.AddOns.ExtraLegroom {
		v.Legroom = "Yes"
	}

	var hb, tb bytes.Buffer
	if err := bookingHTML.Execute(&hb, v); err != nil {
		return "", "", "", err
	}
	if err := bookingText.Execute(&tb, v); err != nil {
		return "", "", "", err
	}
	return fmt.Sprintf("Booking Created (PNR: %s)", b.PNR), hb.String(), tb.String(), nil
}

func formatAmount(currency string, amount float64) string {
	if currency == "INR" {
		return fmt.Sprintf("₹%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}
