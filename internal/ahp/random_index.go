package ahp

// saatyRandomIndex holds the published random consistency indices for
// matrices of order 1..10. Orders above 10 require extended entries
// supplied through configuration; without them derivation fails fast
// with UnsupportedMatrixSizeError rather than guessing an approximation.
var saatyRandomIndex = map[int]float64{
	1:  0.0,
	2:  0.0,
	3:  0.58,
	4:  0.90,
	5:  1.12,
	6:  1.24,
	7:  1.32,
	8:  1.41,
	9:  1.45,
	10: 1.49,
}

// RandomIndexTable returns the built-in table merged with any extension
// entries. Extensions may override built-in orders, though in practice
// they only add orders above 10.
func RandomIndexTable(extensions map[int]float64) map[int]float64 {
	table := make(map[int]float64, len(saatyRandomIndex)+len(extensions))
	for n, ri := range saatyRandomIndex {
		table[n] = ri
	}
	for n, ri := range extensions {
		table[n] = ri
	}
	return table
}
