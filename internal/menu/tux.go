package menu

var burgerExtras = []Extra{
	{ID: "extra-smashed-patty", Name: "Extra Smashed Patty", Price: 40},
	{ID: "bacon", Name: "Bacon", Price: 20},
	{ID: "cheese", Name: "Cheese", Price: 15},
	{ID: "ranch", Name: "Ranch", Price: 10},
	{ID: "mushroom", Name: "Mushroom", Price: 15},
	{ID: "caramelized-onion", Name: "Caramelized Onion", Price: 10},
	{ID: "jalapeno", Name: "Jalapeño", Price: 10},
	{ID: "tux-sauce", Name: "TUX Sauce", Price: 10},
	{ID: "extra-bun", Name: "Extra Bun", Price: 10},
	{ID: "pickle", Name: "Pickle", Price: 5},
	{ID: "condiments", Name: "BBQ / Ketchup / Sweet Chili / Hot Sauce", Price: 5},
}

var hawawshiExtras = []Extra{
	{ID: "mozzarella-cheese", Name: "Mozzarella Cheese", Price: 20},
	{ID: "tux-hawawshi-sauce", Name: "TUX Hawawshi Sauce", Price: 10},
	{ID: "hawawshi-condiments", Name: "BBQ / Ketchup / Sweet Chili / Hot Sauce", Price: 5},
}

var tuxItems = []Item{
	{ID: "single-smashed-patty", Name: "Single Smashed Patty", Description: "Smashed patty, cheese, TUX sauce, pickles, tomato, onion, lettuce.", BasePrice: 95, Category: "Smash Burgers", Extras: burgerExtras},
	{ID: "double-smashed-patty", Name: "Double Smashed Patty", Description: "Two smashed patties, cheese, TUX sauce, pickles, tomato, onion, lettuce.", BasePrice: 140, Category: "Smash Burgers", Extras: burgerExtras},
	{ID: "triple-smashed-patty", Name: "Triple Smashed Patty", Description: "Triple the patties with all the classic TUX toppings and sauce.", BasePrice: 160, Category: "Smash Burgers", Extras: burgerExtras},
	{ID: "quatro-smashed-patty", Name: "TUX Quatro Smashed Patty", Description: "Four smashed patties, cheese, caramelized onion, mushroom, TUX sauce.", BasePrice: 190, Category: "Smash Burgers", Extras: burgerExtras},
	{ID: "tuxify-single", Name: "TUXIFY Single", Description: "Brioche bun, beef patty, American cheese, pickles, chopped onion, ketchup, TUXIFY sauce.", BasePrice: 120, Category: "TUXIFY", Extras: burgerExtras},
	{ID: "tuxify-double", Name: "TUXIFY Double", Description: "Double beef patties with American cheese, pickles, onion, ketchup, TUXIFY sauce.", BasePrice: 160, Category: "TUXIFY", Extras: burgerExtras},
	{ID: "tuxify-triple", Name: "TUXIFY Triple", Description: "Three beef patties layered with American cheese and TUXIFY sauce.", BasePrice: 200, Category: "TUXIFY", Extras: burgerExtras},
	{ID: "tuxify-quatro", Name: "TUXIFY Quatro", Description: "Four beef patties, American cheese, pickles, chopped onion, ketchup, TUXIFY sauce.", BasePrice: 240, Category: "TUXIFY", Extras: burgerExtras},
	{ID: "classic-fries-small", Name: "Classic Fries (Small)", BasePrice: 25, Category: "Fries"},
	{ID: "classic-fries-large", Name: "Classic Fries (Large)", BasePrice: 30, Category: "Fries"},
	{ID: "cheese-fries", Name: "Cheese Fries", BasePrice: 30, Category: "Fries"},
	{ID: "chili-fries", Name: "Chili Fries", BasePrice: 40, Category: "Fries"},
	{ID: "tux-fries", Name: "TUX Fries", Description: "Fries, smashed patty, cheese, pickles, caramelised onion, jalapeño, TUX sauce.", BasePrice: 75, Category: "Fries"},
	{ID: "doppy-fries", Name: "Doppy Fries", BasePrice: 95, Category: "Fries"},
	{ID: "classic-hawawshi", Name: "Classic Hawawshi", Description: "Baladi bread, hawawshi meat, onion. Served with chili sauce.", BasePrice: 80, Category: "Hawawshi", Extras: hawawshiExtras},
	{ID: "tux-hawawshi", Name: "TUX Hawawshi", Description: "Baladi bread, hawawshi meat, mozzarella, onion, TUX hawawshi sauce.", BasePrice: 100, Category: "Hawawshi", Extras: hawawshiExtras},
	{ID: "soda", Name: "Soda", BasePrice: 20, Category: "Drinks"},
	{ID: "water", Name: "Water", BasePrice: 10, Category: "Drinks"},
}

var defaultCatalog = NewCatalog(tuxItems)

// Default returns the shared TUX catalog.
func Default() *Catalog {
	return defaultCatalog
}
