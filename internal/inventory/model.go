package inventory

type StockItem struct {
	ProductID     int64 `json:"productId"`
	Available     int   `json:"available"`
	IsDropshipped bool  `json:"isDropshipped"`
}

type Line struct {
	ProductID int64
	Quantity  int
}

type DepletedLine struct {
	ProductID int64 `json:"productId"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

type ReserveResult struct {
	Reserved []Line
	Depleted []DepletedLine
}
