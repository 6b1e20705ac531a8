package domain

// CartItem is what the cart store holds per user: just references and a
// quantity. Prices are always resolved against the live product at
// checkout time, never trusted from the cart.
type CartItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}
