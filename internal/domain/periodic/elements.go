package periodic

// Standard atomic weights (g/mol) of the supported elements.
var standardElements = []Element{
	{Symbol: "H", Number: 1, Mass: 1.008, Category: CategoryNonmetal},
	{Symbol: "He", Number: 2, Mass: 4.003, Category: CategoryNonmetal},
	{Symbol: "Li", Number: 3, Mass: 6.94, Category: CategoryMetal},
	{Symbol: "Be", Number: 4, Mass: 9.012, Category: CategoryMetal},
	{Symbol: "B", Number: 5, Mass: 10.81, Category: CategoryNonmetal},
	{Symbol: "C", Number: 6, Mass: 12.011, Category: CategoryNonmetal},
	{Symbol: "N", Number: 7, Mass: 14.007, Category: CategoryNonmetal},
	{Symbol: "O", Number: 8, Mass: 15.999, Category: CategoryNonmetal},
	{Symbol: "F", Number: 9, Mass: 18.998, Category: CategoryNonmetal},
	{Symbol: "Ne", Number: 10, Mass: 20.180, Category: CategoryNonmetal},
	{Symbol: "Na", Number: 11, Mass: 22.990, Category: CategoryMetal},
	{Symbol: "Mg", Number: 12, Mass: 24.305, Category: CategoryMetal},
	{Symbol: "Al", Number: 13, Mass: 26.982, Category: CategoryMetal},
	{Symbol: "Si", Number: 14, Mass: 28.085, Category: CategoryNonmetal},
	{Symbol: "P", Number: 15, Mass: 30.974, Category: CategoryNonmetal},
	{Symbol: "S", Number: 16, Mass: 32.06, Category: CategoryNonmetal},
	{Symbol: "Cl", Number: 17, Mass: 35.45, Category: CategoryNonmetal},
	{Symbol: "Ar", Number: 18, Mass: 39.948, Category: CategoryNonmetal},
	{Symbol: "K", Number: 19, Mass: 39.098, Category: CategoryMetal},
	{Symbol: "Ca", Number: 20, Mass: 40.078, Category: CategoryMetal},
	{Symbol: "Sc", Number: 21, Mass: 44.956, Category: CategoryMetal},
	{Symbol: "Ti", Number: 22, Mass: 47.867, Category: CategoryMetal},
	{Symbol: "V", Number: 23, Mass: 50.942, Category: CategoryMetal},
	{Symbol: "Cr", Number: 24, Mass: 51.996, Category: CategoryMetal},
	{Symbol: "Mn", Number: 25, Mass: 54.938, Category: CategoryMetal},
	{Symbol: "Fe", Number: 26, Mass: 55.845, Category: CategoryMetal},
	{Symbol: "Co", Number: 27, Mass: 58.933, Category: CategoryMetal},
	{Symbol: "Ni", Number: 28, Mass: 58.693, Category: CategoryMetal},
	{Symbol: "Cu", Number: 29, Mass: 63.546, Category: CategoryMetal},
	{Symbol: "Zn", Number: 30, Mass: 65.38, Category: CategoryMetal},
	{Symbol: "Ga", Number: 31, Mass: 69.723, Category: CategoryMetal},
	{Symbol: "Ge", Number: 32, Mass: 72.63, Category: CategoryOther},
	{Symbol: "As", Number: 33, Mass: 74.922, Category: CategoryNonmetal},
	{Symbol: "Se", Number: 34, Mass: 78.971, Category: CategoryNonmetal},
	{Symbol: "Br", Number: 35, Mass: 79.904, Category: CategoryNonmetal},
	{Symbol: "Kr", Number: 36, Mass: 83.798, Category: CategoryNonmetal},
	{Symbol: "Rb", Number: 37, Mass: 85.468, Category: CategoryMetal},
	{Symbol: "Sr", Number: 38, Mass: 87.62, Category: CategoryMetal},
	{Symbol: "Y", Number: 39, Mass: 88.906, Category: CategoryMetal},
	{Symbol: "Zr", Number: 40, Mass: 91.224, Category: CategoryMetal},
	{Symbol: "Nb", Number: 41, Mass: 92.906, Category: CategoryMetal},
	{Symbol: "Mo", Number: 42, Mass: 95.96, Category: CategoryMetal},
	{Symbol: "Ru", Number: 44, Mass: 101.07, Category: CategoryMetal},
	{Symbol: "Rh", Number: 45, Mass: 102.906, Category: CategoryMetal},
	{Symbol: "Pd", Number: 46, Mass: 106.42, Category: CategoryMetal},
	{Symbol: "Ag", Number: 47, Mass: 107.868, Category: CategoryMetal},
	{Symbol: "Cd", Number: 48, Mass: 112.41, Category: CategoryMetal},
	{Symbol: "In", Number: 49, Mass: 114.818, Category: CategoryMetal},
	{Symbol: "Sn", Number: 50, Mass: 118.71, Category: CategoryMetal},
	{Symbol: "Sb", Number: 51, Mass: 121.760, Category: CategoryMetal},
	{Symbol: "Te", Number: 52, Mass: 127.60, Category: CategoryNonmetal},
	{Symbol: "I", Number: 53, Mass: 126.904, Category: CategoryNonmetal},
	{Symbol: "Xe", Number: 54, Mass: 131.29, Category: CategoryNonmetal},
	{Symbol: "Cs", Number: 55, Mass: 132.905, Category: CategoryMetal},
	{Symbol: "Ba", Number: 56, Mass: 137.327, Category: CategoryMetal},
	{Symbol: "La", Number: 57, Mass: 138.905, Category: CategoryMetal},
	{Symbol: "Ce", Number: 58, Mass: 140.116, Category: CategoryMetal},
	{Symbol: "W", Number: 74, Mass: 183.84, Category: CategoryMetal},
	{Symbol: "Pt", Number: 78, Mass: 195.084, Category: CategoryMetal},
	{Symbol: "Au", Number: 79, Mass: 196.967, Category: CategoryMetal},
	{Symbol: "Hg", Number: 80, Mass: 200.59, Category: CategoryMetal},
	{Symbol: "Pb", Number: 82, Mass: 207.2, Category: CategoryMetal},
	{Symbol: "Bi", Number: 83, Mass: 208.980, Category: CategoryMetal},
}

var standard = mustTable(standardElements)

func mustTable(elements []Element) *Table {
	t, err := NewTable(elements)
	if err != nil {
		panic(err)
	}
	return t
}

// Standard returns the process-wide catalog of supported elements.
func Standard() *Table { return standard }
