// Package invoicetemplate provides template Fetchers for the invoice
// TemplateRepository.
//
// HTTPFetcher reads templates from a content host, so a missing markup file
// surfaces as a load error carrying the host's HTTP status. FSFetcher reads
// from an fs.FS, such as the embedded default templates, and reports a
// missing file as a 404.
package invoicetemplate
