package sources

import (
	"fmt"
	"net/url"
	"strings"
)

// MethodOverrideHeader is set on a POST request standing in for a GET whose
// URL would otherwise exceed the source's length limit (spec §4.2
// "URL-length override").
const MethodOverrideHeader = "X-HTTP-Method-Override"

// Batch is one group of identifiers to request together, plus how to
// transport them: as a GET with an inline filter, or — when even a single
// identifier's URL would exceed the limit — as a method-override POST.
type Batch struct {
	Identifiers []string
	UseMethodOverridePOST bool
}

// BuildURL renders the GET request URL for filterParam=__in-style list
// filters (e.g. "molecule_chembl_id__in=CHEMBL1,CHEMBL2").
func BuildURL(baseURL, filterParam string, identifiers []string) string {
	values := url.Values{}
	values.Set(filterParam, strings.Join(identifiers, ","))

	return baseURL + "?" + values.Encode()
}

// SplitBatches groups identifiers into batches no larger than maxCount,
// recursively splitting any batch whose GET URL would exceed maxURLLength,
// and flips to a method-override POST for any single identifier whose URL
// still exceeds the limit alone (spec §4.2 "Batch construction" and
// "URL-length override").
func SplitBatches(identifiers []string, baseURL, filterParam string, maxCount, maxURLLength int) []Batch {
	if maxCount <= 0 {
		maxCount = len(identifiers)
	}

	var batches []Batch

	for i := 0; i < len(identifiers); i += maxCount {
		end := i + maxCount
		if end > len(identifiers) {
			end = len(identifiers)
		}

		batches = append(batches, splitForLength(identifiers[i:end], baseURL, filterParam, maxURLLength)...)
	}

	return batches
}

func splitForLength(ids []string, baseURL, filterParam string, maxURLLength int) []Batch {
	if len(ids) == 0 {
		return nil
	}

	url := BuildURL(baseURL, filterParam, ids)
	if len(url) <= maxURLLength {
		return []Batch{{Identifiers: ids}}
	}

	if len(ids) == 1 {
		return []Batch{{Identifiers: ids, UseMethodOverridePOST: true}}
	}

	mid := len(ids) / 2

	left := splitForLength(ids[:mid], baseURL, filterParam, maxURLLength)
	right := splitForLength(ids[mid:], baseURL, filterParam, maxURLLength)

	return append(left, right...)
}

// MethodOverrideBody renders the JSON body carrying the __in filter for a
// method-override POST request.
func MethodOverrideBody(filterParam string, identifiers []string) []byte {
	return []byte(fmt.Sprintf(`{%q:%q}`, filterParam, strings.Join(identifiers, ",")))
}
