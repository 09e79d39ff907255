// Package feature 计算候选对的信号特征
package feature

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/dmedlin87/Theoria-sub008/internal/domain/entity"
	"github.com/dmedlin87/Theoria-sub008/internal/infrastructure/persistence/redis"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopwords 高频虚词，不参与共现统计
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "to": true, "for": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "that": true, "this": true,
	"it": true, "as": true, "with": true, "by": true, "at": true, "from": true,
	"not": true, "but": true, "his": true, "her": true, "they": true,
	"he": true, "she": true, "we": true, "you": true, "i": true,
}

const maxTermsPerObject = 64

// Tokenize 提取对象的规范化词项集合：正文词元、标签与引用区段。
// 返回去重排序后的切片，便于确定性统计。
func Tokenize(obj *entity.Object) []string {
	seen := make(map[string]bool)

	for _, w := range wordPattern.FindAllString(strings.ToLower(obj.Title+" "+obj.Body), -1) {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		seen[w] = true
	}
	for _, tag := range obj.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			seen["tag:"+tag] = true
		}
	}
	for _, ref := range obj.RefRanges {
		ref = strings.ToLower(strings.TrimSpace(ref))
		if ref != "" {
			seen["ref:"+ref] = true
		}
	}

	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	if len(terms) > maxTermsPerObject {
		terms = terms[:maxTermsPerObject]
	}
	return terms
}

// TermStats 词项共现统计，计数存放在 Redis。
// 统计近似即可：丢失计数只会让 PMI 信号变弱，不影响正确性。
type TermStats struct {
	client *redis.Client
}

// NewTermStats 创建词项统计
func NewTermStats(client *redis.Client) *TermStats {
	return &TermStats{client: client}
}

const (
	keyTermDF   = "pmi:df"   // term -> 出现文档数
	keyPairDF   = "pmi:codf" // "a|b" -> 共现文档数
	keyDocCount = "pmi:docs" // 总文档数
)

// Observe 记录一个对象的词项出现。同一对象重复 upsert 会带来轻微重复计数，
// 可接受（见上）。
func (s *TermStats) Observe(ctx context.Context, terms []string) error {
	if len(terms) == 0 {
		return nil
	}

	rdb := s.client.Redis()
	pipe := rdb.Pipeline()

	for _, t := range terms {
		pipe.HIncrBy(ctx, keyTermDF, t, 1)
	}
	pipe.Incr(ctx, keyDocCount)

	_, err := pipe.Exec(ctx)
	return err
}

// ObservePair 记录一对对象的词项共现
func (s *TermStats) ObservePair(ctx context.Context, shared []string) error {
	if len(shared) == 0 {
		return nil
	}

	rdb := s.client.Redis()
	pipe := rdb.Pipeline()
	for _, t := range shared {
		pipe.HIncrBy(ctx, keyPairDF, t, 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// PMI 计算两个词项集合的平均点互信息，结果截断到 [floor, ceil]。
// 没有共享词项时返回 0（中性）。
func (s *TermStats) PMI(ctx context.Context, aTerms, bTerms []string, floor, ceil float64) (float64, error) {
	shared := Intersect(aTerms, bTerms)
	if len(shared) == 0 {
		return 0, nil
	}

	rdb := s.client.Redis()

	total, err := rdb.Get(ctx, keyDocCount).Int64()
	if err != nil {
		if redis.IsNil(err) {
			return 0, nil
		}
		return 0, err
	}
	if total < 2 {
		return 0, nil
	}

	dfs, err := rdb.HMGet(ctx, keyTermDF, shared...).Result()
	if err != nil {
		return 0, err
	}
	codfs, err := rdb.HMGet(ctx, keyPairDF, shared...).Result()
	if err != nil {
		return 0, err
	}

	var sum float64
	var n int
	for i, t := range shared {
		_ = t
		df := parseCount(dfs[i])
		codf := parseCount(codfs[i])
		if df < 1 {
			df = 1
		}
		if codf < 1 {
			// 共享但尚无共现计数，按 1 次处理
			codf = 1
		}

		pxy := float64(codf) / float64(total)
		px := float64(df) / float64(total)
		pmi := math.Log(pxy / (px * px))
		sum += clamp(pmi, floor, ceil)
		n++
	}

	if n == 0 {
		return 0, nil
	}
	return clamp(sum/float64(n), floor, ceil), nil
}

// Intersect 返回两个有序词项切片的交集
func Intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	var shared []string
	for _, t := range b {
		if set[t] {
			shared = append(shared, t)
		}
	}
	return shared
}

func parseCount(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
