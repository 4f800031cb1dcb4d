package domain

// Payment is a pending fee the guardian can pay.
type Payment struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// Announcement is a dashboard news item.
type Announcement struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

var payments = []Payment{
	{ID: 1, Description: "Cuota Mensual", Amount: 5000},
	{ID: 2, Description: "Matrícula", Amount: 10000},
	{ID: 3, Description: "Equipamiento", Amount: 15000},
}

var announcements = []Announcement{
	{ID: 1, Title: "Próximo Torneo", Description: "Este fin de semana tendremos el torneo de primavera", Date: "2025-02-15"},
	{ID: 2, Title: "Cuota Febrero", Description: "Ya está disponible el pago de la cuota de febrero", Date: "2025-02-01"},
}

// Payments returns a copy of the fixed payment catalog.
func Payments() []Payment {
	return append([]Payment(nil), payments...)
}

// PaymentByID returns the catalog entry itself, so selections share identity.
func PaymentByID(id int) (*Payment, bool) {
	for i := range payments {
		if payments[i].ID == id {
			return &payments[i], true
		}
	}
	return nil, false
}

// Announcements returns a copy of the fixed announcement list.
func Announcements() []Announcement {
	return append([]Announcement(nil), announcements...)
}
