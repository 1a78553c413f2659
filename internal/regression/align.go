package regression

import (
	"sort"

	"factorlens/pkg/contracts/domain"
)

// Align inner-joins a dependent series with a set of named independent
// series on exact date equality. Each input series must be individually
// ordered and de-duplicated by date. Only dates present in the dependent
// series and in every independent series survive; output follows ascending
// date. An empty intersection yields an empty Dataset, not an error.
func Align(dependent domain.Series, independents map[string]domain.Series) Dataset {
	names := make([]string, 0, len(independents))
	for name := range independents {
		names = append(names, name)
	}
	sort.Strings(names)

	ds := Dataset{Names: names}
	if len(dependent) == 0 || len(independents) == 0 {
		return ds
	}

	// Index each independent series by day key for O(1) lookup
	indexed := make([]map[string]float64, len(names))
	for i, name := range names {
		series := independents[name]
		byDate := make(map[string]float64, len(series))
		for _, p := range series {
			byDate[p.DateKey()] = p.Value
		}
		indexed[i] = byDate
	}

	for _, dep := range dependent {
		key := dep.DateKey()
		values := make([]float64, len(names))
		matched := true
		for i := range names {
			v, ok := indexed[i][key]
			if !ok {
				matched = false
				break
			}
			values[i] = v
		}
		if !matched {
			continue
		}
		ds.Obs = append(ds.Obs, Observation{
			Date:         dep.Date,
			Dependent:    dep.Value,
			Independents: values,
		})
	}

	return ds
}
