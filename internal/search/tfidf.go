package search

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// tokenize lower-cases text and drops stop-words.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := stopWords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

type entry struct {
	term   int
	weight float64
}

// vector is a sparse, L2-normalized tf-idf vector sorted by term.
type vector []entry

func (v vector) dot(o vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(v) && j < len(o) {
		switch {
		case v[i].term == o[j].term:
			sum += v[i].weight * o[j].weight
			i++
			j++
		case v[i].term < o[j].term:
			i++
		default:
			j++
		}
	}
	return sum
}

// vectorizer holds the vocabulary and smoothed idf learned from one corpus.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// fit learns the vocabulary in sorted term order.
// idf = ln((1+n)/(1+df)) + 1
func fit(docs [][]string) *vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, tok := range doc {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v := &vectorizer{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	for i, t := range terms {
		v.vocab[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return v
}

// transform maps tokens to a normalized vector. Unknown tokens are ignored.
func (v *vectorizer) transform(tokens []string) vector {
	counts := make(map[int]float64)
	for _, tok := range tokens {
		if id, ok := v.vocab[tok]; ok {
			counts[id]++
		}
	}
	vec := make(vector, 0, len(counts))
	norm := 0.0
	for id, tf := range counts {
		w := tf * v.idf[id]
		vec = append(vec, entry{term: id, weight: w})
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].weight /= norm
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].term < vec[j].term })
	return vec
}

var stopWords = toSet(
	"a", "about", "above", "across", "after", "afterwards", "again", "against", "all", "almost",
	"alone", "along", "already", "also", "although", "always", "am", "among", "amongst", "amount",
	"an", "and", "another", "any", "anyhow", "anyone", "anything", "anyway", "anywhere", "are",
	"around", "as", "at", "back", "be", "became", "because", "become", "becomes", "becoming",
	"been", "before", "beforehand", "behind", "being", "below", "beside", "besides", "between",
	"beyond", "both", "bottom", "but", "by", "can", "cannot", "could", "do", "done", "down", "due",
	"during", "each", "eg", "either", "else", "elsewhere", "enough", "etc", "even", "ever", "every",
	"everyone", "everything", "everywhere", "except", "few", "for", "former", "formerly", "from",
	"front", "full", "further", "get", "give", "go", "had", "has", "have", "he", "hence", "her",
	"here", "hereafter", "hereby", "herein", "hereupon", "hers", "herself", "him", "himself", "his",
	"how", "however", "ie", "if", "in", "indeed", "into", "is", "it", "its", "itself", "keep",
	"last", "latter", "latterly", "least", "less", "ltd", "made", "many", "may", "me", "meanwhile",
	"might", "mine", "more", "moreover", "most", "mostly", "move", "much", "must", "my", "myself",
	"name", "namely", "neither", "never", "nevertheless", "next", "no", "nobody", "none", "noone",
	"nor", "not", "nothing", "now", "nowhere", "of", "off", "often", "on", "once", "one", "only",
	"onto", "or", "other", "others", "otherwise", "our", "ours", "ourselves", "out", "over", "own",
	"part", "per", "perhaps", "please", "put", "rather", "re", "same", "see", "seem", "seemed",
	"seeming", "seems", "several", "she", "should", "show", "side", "since", "so", "some",
	"somehow", "someone", "something", "sometime", "sometimes", "somewhere", "still", "such",
	"take", "than", "that", "the", "their", "them", "themselves", "then", "thence", "there",
	"thereafter", "thereby", "therefore", "therein", "thereupon", "these", "they", "this", "those",
	"though", "through", "throughout", "thru", "thus", "to", "together", "too", "top", "toward",
	"towards", "under", "until", "up", "upon", "us", "very", "via", "was", "we", "well", "were",
	"what", "whatever", "when", "whence", "whenever", "where", "whereafter", "whereas", "whereby",
	"wherein", "whereupon", "wherever", "whether", "which", "while", "whither", "who", "whoever",
	"whole", "whom", "whose", "why", "will", "with", "within", "without", "would", "yet", "you",
	"your", "yours", "yourself", "yourselves",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
