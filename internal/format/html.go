// Package format renders note bodies as pre-escaped HTML. Each note slot
// starts with a fixed marker heading that the note synchronizer uses to find
// the note again on later runs.
package format

import (
	"fmt"
	"html"
	"strings"

	"crm-sync-service/internal/models"
)

// Marker headings, one per note slot.
const (
	ObjectsMarker  = "<h3>Policy Objects</h3>"
	PaymentsMarker = "<h3>Payment Schedule</h3>"
)

const missing = "N/A"

func orNA(value string) string {
	if value == "" {
		return missing
	}
	return html.EscapeString(value)
}

// PolicyObjects renders the insured objects of a policy.
func PolicyObjects(objects []models.PolicyObject) string {
	var b strings.Builder
	b.WriteString(ObjectsMarker)
	b.WriteString("<ul>")

	for _, obj := range objects {
		b.WriteString("<li>")
		fmt.Fprintf(&b, "<strong>Vehicle Type:</strong> %s<br>", orNA(obj.VehicleType))
		fmt.Fprintf(&b, "<strong>License Plate:</strong> %s<br>", orNA(obj.LicensePlate))
		fmt.Fprintf(&b, "<strong>Make:</strong> %s<br>", orNA(obj.Make))
		fmt.Fprintf(&b, "<strong>Model:</strong> %s<br>", orNA(obj.Model))
		fmt.Fprintf(&b, "<strong>VIN:</strong> %s<br>", orNA(obj.VIN))
		fmt.Fprintf(&b, "<strong>Year:</strong> %s<br>", orNA(obj.Year))
		fmt.Fprintf(&b, "<strong>Power:</strong> %s HP<br>", orNA(obj.Power))
		fmt.Fprintf(&b, "<strong>Gross Weight:</strong> %s kg<br>", orNA(obj.GrossWeight))
		fmt.Fprintf(&b, "<strong>Owner:</strong> %s<br>", orNA(obj.OwnerName))
		b.WriteString("</li><br>")
	}

	b.WriteString("</ul>")
	return b.String()
}

// PaymentSchedule renders the installment table of a policy.
func PaymentSchedule(installments []models.Installment) string {
	var b strings.Builder
	b.WriteString(PaymentsMarker)
	b.WriteString("<ul>")

	for _, inst := range installments {
		fmt.Fprintf(&b, "<li><strong>Installment %d of %d:</strong> %s</li>",
			inst.Num, inst.Total, orNA(inst.Status))
	}

	b.WriteString("</ul>")
	return b.String()
}
