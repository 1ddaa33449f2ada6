package main

import (
	"fmt"

	"github.com/minute-repeater/restocked"
)

// Run executes the add command: fetch, extract and ingest the URL, then
// subscribe the user to it.
func (c *AddCmd) Run(deps *Dependencies) error {
	normalized, err := restocked.NormalizeURL(c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", restocked.ErrorMessage(err))
		return err
	}

	page, err := deps.Fetcher.Fetch(deps.Ctx, normalized)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", restocked.ErrorMessage(err))
		return err
	}

	extracted, err := deps.Extractor.Extract(page.HTML, normalized)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", restocked.ErrorMessage(err))
		return err
	}

	result, err := deps.Products.Ingest(deps.Ctx, extracted)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", restocked.ErrorMessage(err))
		return err
	}

	item := &restocked.TrackedItem{
		UserID:    c.UserID,
		ProductID: result.Product.ID,
		URL:       result.Product.URL,
	}
	if err := deps.Items.CreateTrackedItem(deps.Ctx, item); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", restocked.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Tracking %q (%d variants)\n", result.Product.Name, len(result.Variants))
	for _, note := range result.Notes {
		fmt.Fprintf(deps.Stdout, "  note: %s\n", note)
	}
	for _, v := range result.Variants {
		price := "-"
		if v.PriceCents != nil {
			price = fmt.Sprintf("%d.%02d", *v.PriceCents/100, *v.PriceCents%100)
		}
		label := v.Attributes.String()
		if label == "" {
			label = "(default)"
		}
		fmt.Fprintf(deps.Stdout, "  %-40s %10s  %s\n", label, price, v.StockStatus)
	}
	return nil
}
