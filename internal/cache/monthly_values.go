package cache

// MonthKey identifies one region reduction of one dataset month.
type MonthKey struct {
	Dataset string
	Band    string
	Region  string
	Scale   int
	Month   string
}

// MonthlyValues keeps one reduced value per month. A month the dataset had no
// data for is stored as an explicit null, so it is a hit that is not valid.
type MonthlyValues struct {
	store CacheService[*float64]
}

func NewMonthlyValues(store CacheService[*float64]) *MonthlyValues {
	if store == nil {
		store = Disabled[*float64]{}
	}
	return &MonthlyValues{store: store}
}

func (m *MonthlyValues) key(k MonthKey) string {
	return m.store.GenerateKey(k.Dataset, k.Band, k.Region, k.Scale, k.Month)
}

// Lookup reports whether the month is cached and, if so, its value and
// whether it had data.
func (m *MonthlyValues) Lookup(k MonthKey) (value float64, valid, hit bool) {
	cached, ok := m.store.Get(m.key(k))
	if !ok {
		return 0, false, false
	}
	if cached == nil {
		return 0, false, true
	}
	return *cached, true, true
}

func (m *MonthlyValues) Store(k MonthKey, value float64, valid bool) error {
	if !valid {
		return m.store.Set(m.key(k), nil)
	}
	return m.store.Set(m.key(k), &value)
}
