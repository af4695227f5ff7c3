package policy

func defaultRules() map[Rule]Predicate {
	return map[Rule]Predicate{
		{Session, Create}: func(c Caller, _ Ownership) bool {
			return !c.Authenticated()
		},

		{Restaurant, Create}: func(c Caller, _ Ownership) bool {
			return c.Authenticated()
		},
		{Restaurant, Edit}: manages,
		{Restaurant, Delete}: func(c Caller, o Ownership) bool {
			return c.Authenticated() && o.IsAdmin(c.ID)
		},
		{Restaurant, Claim}: func(c Caller, o Ownership) bool {
			return c.Authenticated() && o.Unclaimed()
		},
		{Restaurant, SuggestChanges}: func(c Caller, o Ownership) bool {
			return c.Authenticated() &&
				!o.IsAdmin(c.ID) &&
				(!o.Unclaimed() || !o.IsCreator(c.ID))
		},

		{Menu, Create}: manages,
		{Menu, Edit}:   managesOwnMenu,
		{Menu, Delete}: managesOwnMenu,
	}
}

// manages holds for administrators, and for the creator while nobody has
// claimed the listing yet.
func manages(c Caller, o Ownership) bool {
	if !c.Authenticated() {
		return false
	}
	return o.IsAdmin(c.ID) || (o.Unclaimed() && o.IsCreator(c.ID))
}

func managesOwnMenu(c Caller, o Ownership) bool {
	return o.BelongsToRestaurant && manages(c, o)
}
