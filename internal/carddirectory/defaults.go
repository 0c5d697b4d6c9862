package carddirectory

// SystemAccountLast4 is the company account whose automatic payment lines are
// dropped from every statement.
const SystemAccountLast4 = "1785"

// DefaultExcludedDescriptions mark the system account's own payment rows.
var DefaultExcludedDescriptions = []string{
	"auto payment deduction",
	"payment - auto payment",
	"pago automatico",
}

var defaultEntries = []Entry{
	{Last4: "0421", Representative: "Alejandro Ruiz"},
	{Last4: "0937", Representative: "Beatriz Salgado"},
	{Last4: "1102", Representative: "Carlos Mendoza"},
	{Last4: SystemAccountLast4, Representative: "Hemisphere Trading O", Excluded: true},
	{Last4: "2216", Representative: "Daniela Ortega"},
	{Last4: "2850", Representative: "Eduardo Villalobos"},
	{Last4: "3364", Representative: "Fernanda Rios"},
	{Last4: "3971", Representative: "Gabriel Herrera"},
	{Last4: "4405", Representative: "Helena Castro"},
	{Last4: "5018", Representative: "Ignacio Paredes"},
	{Last4: "5523", Representative: "Julia Navarro"},
	{Last4: "6147", Representative: "Lucas Fuentes"},
	{Last4: "6790", Representative: "Mariana Soto"},
	{Last4: "7332", Representative: "Nicolas Vega"},
	{Last4: "8866", Representative: "Olivia Campos"},
	{Last4: "9254", Representative: "Pablo Ibarra"},
}

// Default returns the built-in directory.
func Default() *Directory {
	return New(defaultEntries, DefaultExcludedDescriptions)
}
