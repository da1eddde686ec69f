package domain

import "time"

// Evaluation es el registro persistido de una consulta de precio ya puntuada.
type Evaluation struct {
	ID          string
	Query       Query
	Result      FairnessResult
	EvaluatedAt time.Time
}

// BatchItem es una consulta del modo batch: la query más el precio a evaluar.
type BatchItem struct {
	Query Query
	Price float64
}

// BatchResult empareja una consulta batch con su resultado o su error.
type BatchResult struct {
	Item       BatchItem
	Evaluation Evaluation
	Err        error
}
