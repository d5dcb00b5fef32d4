// Package overflow 处理正文溢出：缩小字号、把尾部节点移到背面，必要时逐级降低字号档位。
// 内容只会被重新分配或缩小，不会丢失。
package overflow

import (
	"fmt"
	"log/slog"

	"github.com/ByLCY/grimoire/card"
)

// Measurer 判断一面卡的正文是否超出可用高度。真实实现需要排版后测量，测试中可用脚本化的假实现。
type Measurer interface {
	Overflows(face *card.Face) (bool, error)
}

// Resolution 描述一次处理的结果。
type Resolution struct {
	// Tier 是最终采用的字号档位（0 为基础字号）。
	Tier int
	// Moved 是移到背面的节点数；为 0 表示没有背面。
	Moved int
	// Unresolved 表示在最小档位仍然溢出，只能尽力而为（不是错误）。
	Unresolved bool
}

// Options 配置 Resolver。
type Options struct {
	// Tiers 是字号档位总数（含基础字号），默认 3。
	Tiers  int
	Logger *slog.Logger
}

// Resolver 对单张卡执行溢出处理。同一个 Resolver 不应被并发使用，
// 因为 Measurer 通常共享一个离屏测量宿主。
type Resolver struct {
	measurer Measurer
	tiers    int
	logger   *slog.Logger
}

// NewResolver 创建 Resolver。
func NewResolver(m Measurer, opts Options) *Resolver {
	if opts.Tiers <= 0 {
		opts.Tiers = 3
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{measurer: m, tiers: opts.Tiers, logger: opts.Logger}
}

// Resolve 测量卡片正面，按需生成背面并写入 c.Back。重复调用是安全的：
// 已有背面的节点会先归还到正面，再从基础档位重新计算。
func (r *Resolver) Resolve(c *card.Card) (Resolution, error) {
	if c.Front == nil {
		return Resolution{}, fmt.Errorf("卡片 %s 尚未渲染", c.ID)
	}
	if c.Kind == card.KindReference {
		return Resolution{}, nil
	}
	front := c.Front
	if c.Back != nil {
		front.Body.Nodes = append(front.Body.Nodes, c.Back.Body.Nodes...)
		c.Back = nil
	}
	front.Body.FontTier = 0
	front.Body.Continued = false

	res, back, err := r.resolveAt(front, 0)
	if err != nil {
		return Resolution{}, fmt.Errorf("处理卡片 %s 溢出失败: %w", c.ID, err)
	}
	c.Back = back
	if res.Unresolved {
		r.logger.Info("卡片内容在最小字号下仍然溢出", "card", c.ID, "name", c.Record.Name, "tier", res.Tier)
	}
	return res, nil
}

func (r *Resolver) resolveAt(front *card.Face, tier int) (Resolution, *card.Face, error) {
	front.Body.FontTier = tier
	over, err := r.measurer.Overflows(front)
	if err != nil {
		return Resolution{}, nil, err
	}
	if !over {
		return Resolution{Tier: tier}, nil, nil
	}

	smaller := tier+1 < r.tiers
	if smaller {
		front.Body.FontTier = tier + 1
		over, err := r.measurer.Overflows(front)
		if err != nil {
			return Resolution{}, nil, err
		}
		if !over {
			return Resolution{Tier: tier + 1}, nil, nil
		}
		front.Body.FontTier = tier
	}

	back := card.NewBack(front)
	moved := 0
	for over && len(front.Body.Nodes) > 0 {
		last := len(front.Body.Nodes) - 1
		back.Body.Nodes = append([]card.Node{front.Body.Nodes[last]}, back.Body.Nodes...)
		front.Body.Nodes = front.Body.Nodes[:last]
		moved++
		if over, err = r.measurer.Overflows(front); err != nil {
			return Resolution{}, nil, err
		}
	}

	backOver := false
	if moved > 0 {
		if backOver, err = r.measurer.Overflows(back); err != nil {
			return Resolution{}, nil, err
		}
	}

	if (moved == 0 || backOver) && smaller {
		front.Body.Nodes = append(front.Body.Nodes, back.Body.Nodes...)
		return r.resolveAt(front, tier+1)
	}
	if moved == 0 {
		// 没有可移动的节点（例如页眉本身过高），背面没有意义
		return Resolution{Tier: tier, Unresolved: true}, nil, nil
	}

	front.Body.Continued = true
	return Resolution{Tier: tier, Moved: moved, Unresolved: over || backOver}, back, nil
}
