package workflow

import (
	"math/rand"
	"time"
)

// Clock 时间源,注入便于测试
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

// Now 返回当前时间
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IdentityResolver 外部身份源
// 引擎容忍空结果与失败:解析失败时不设置负责人,流转照常进行
type IdentityResolver interface {
	ResolveUser(id string) (*User, error)
	PickRandom(ids []string) (string, error)
}

// RandomPicker 默认的随机抽取实现,仅提供 PickRandom 能力
// ResolveUser 返回只有 ID 的用户,适配没有独立身份服务的部署
type RandomPicker struct {
	rng *rand.Rand
}

// NewRandomPicker 创建随机抽取器
func NewRandomPicker(seed int64) *RandomPicker {
	return &RandomPicker{rng: rand.New(rand.NewSource(seed))}
}

// ResolveUser 仅回填 ID
func (p *RandomPicker) ResolveUser(id string) (*User, error) {
	if id == "" {
		return nil, nil
	}
	return &User{ID: id}, nil
}

// PickRandom 从候选列表随机抽取一个用户 ID
func (p *RandomPicker) PickRandom(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	return ids[p.rng.Intn(len(ids))], nil
}

// CategoryRegistry 产品状态(分类)注册表
// 引擎只需要存在性检查
type CategoryRegistry interface {
	Exists(categoryID string) (bool, error)
}

// ProductAttrs 产品转换属性
type ProductAttrs map[string]string

// ProductPayload 转换为产品时移交给产品服务的载荷
type ProductPayload struct {
	RequestID      string                 `json:"request_id"`
	Code           string                 `json:"code"`
	Title          string                 `json:"title"`
	Attrs          ProductAttrs           `json:"attrs"`
	CompletedSteps []*CompletedStepRecord `json:"completed_steps"`
}

// ProductService 产品服务协作方
type ProductService interface {
	CreateFromRequest(payload *ProductPayload) (string, error)
}
