package ports

import (
	"context"

	"github.com/alejandrodnm/carfair/internal/domain"
)

// ListingSource carga el dataset de anuncios ya validado.
type ListingSource interface {
	// LoadListings devuelve todos los anuncios. Se llama una vez al arrancar;
	// el resultado se congela en un domain.Dataset.
	LoadListings(ctx context.Context) ([]domain.Listing, error)
}
