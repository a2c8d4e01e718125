// Package catalog keeps the Stars package list in memory. Prices are
// reseeded on restart and mutable only through operator chat commands.
package catalog

import (
	"sort"
	"sync"

	"stars-shop-backend/internal/domain"
)

type Catalog struct {
	mu   sync.RWMutex
	pkgs map[int]*domain.Package
}

func New(pkgs ...domain.Package) *Catalog {
	c := &Catalog{pkgs: make(map[int]*domain.Package, len(pkgs))}
	for i := range pkgs {
		cp := pkgs[i]
		c.pkgs[cp.ID] = &cp
	}
	return c
}

// NewSeeded returns the catalog with the storefront's default packages.
func NewSeeded() *Catalog {
	return New(
		domain.Package{ID: 1, Stars: 50, Price: 14000, Desc: "Test Pack"},
		domain.Package{ID: 2, Stars: 100, Price: 27000, Desc: "Starter Pack"},
		domain.Package{ID: 3, Stars: 250, Price: 65000, Desc: "Popular Choice", Popular: true},
		domain.Package{ID: 4, Stars: 500, Price: 125000, Desc: "Sponsor Pack"},
		domain.Package{ID: 5, Stars: 1000, Price: 250000, Desc: "Ultimate", Popular: true},
	)
}

func (c *Catalog) List() []domain.Package {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Package, 0, len(c.pkgs))
	for _, p := range c.pkgs {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Get(id int) (domain.Package, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pkgs[id]
	if !ok {
		return domain.Package{}, false
	}
	return *p, true
}

func (c *Catalog) SetPrice(id int, price float64) (domain.Package, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pkgs[id]
	if !ok || price <= 0 {
		return domain.Package{}, false
	}
	p.Price = price
	return *p, true
}

// FindByStars matches an order's stars amount to a package, used by
// intake to flag a price that disagrees with the catalog.
func (c *Catalog) FindByStars(stars int) (domain.Package, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.pkgs {
		if p.Stars == stars {
			return *p, true
		}
	}
	return domain.Package{}, false
}
