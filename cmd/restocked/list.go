package main

import (
	"fmt"

	"github.com/minute-repeater/restocked"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	products, err := deps.Products.FindProducts(deps.Ctx, restocked.ProductFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", restocked.ErrorMessage(err))
		return err
	}

	if len(products) == 0 {
		fmt.Fprintln(deps.Stdout, "No products tracked. Run 'restocked add <url>' to start.")
		return nil
	}

	for _, p := range products {
		variants, err := deps.Products.FindVariantsByProduct(deps.Ctx, p.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(deps.Stdout, "%s  %s (%d variants)\n  %s\n", p.ID, p.Name, len(variants), p.URL)
	}
	return nil
}
