package cache

import (
	"strconv"
	"strings"
)

// KeyProduct returns the cache key for a single product lookup.
func KeyProduct(code string) string {
	return "product:" + strings.ToUpper(strings.TrimSpace(code))
}

// KeyBarcode returns the cache key for a barcode lookup.
func KeyBarcode(barcode string) string {
	return "barcode:" + strings.TrimSpace(barcode)
}

// KeyProductSearch returns the cache key for a catalog search.
func KeyProductSearch(query string, limit int) string {
	return "products:" + strings.ToLower(strings.TrimSpace(query)) + ":" + strconv.Itoa(limit)
}

// KeyCustomer returns the cache key for a customer account.
func KeyCustomer(account string) string {
	return "customer:" + strings.ToUpper(strings.TrimSpace(account))
}

// KeyInvoiceLines returns the cache key for original invoice lines.
func KeyInvoiceLines(invoiceNo string) string {
	return "invoice-lines:" + strings.ToUpper(strings.TrimSpace(invoiceNo))
}
