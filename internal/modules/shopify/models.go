package shopify

// Admin REST order payload. Amounts are decimal strings ("22.30") rendered
// from integer cents; Shopify rejects anything else.

type Order struct {
	Email                  string         `json:"email"`
	FulfillmentStatus      string         `json:"fulfillment_status,omitempty"`
	FinancialStatus        string         `json:"financial_status"`
	SendReceipt            bool           `json:"send_receipt"`
	SendFulfillmentReceipt bool           `json:"send_fulfillment_receipt"`
	LineItems              []LineItem     `json:"line_items"`
	Customer               *OrderCustomer `json:"customer,omitempty"`
	ShippingAddress        *Address       `json:"shipping_address,omitempty"`
	BillingAddress         *Address       `json:"billing_address,omitempty"`
	ShippingLines          []ShippingLine `json:"shipping_lines,omitempty"`
	Transactions           []Transaction  `json:"transactions,omitempty"`
	Note                   string         `json:"note,omitempty"`
	Tags                   string         `json:"tags,omitempty"`
}

type LineItem struct {
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price,omitempty"`
}

type OrderCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	Province    string `json:"province"`
	Zip         string `json:"zip"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone,omitempty"`
}

type ShippingLine struct {
	Title string `json:"title"`
	Price string `json:"price"`
	Code  string `json:"code"`
}

type Transaction struct {
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Gateway       string `json:"gateway"`
	Authorization string `json:"authorization"`
}
