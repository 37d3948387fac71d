package domain

import (
	"maps"
	"slices"
	"time"
)

// Key and Clone let the repositories store entities copy-on-write.

func (s *Supplier) Key() string { return s.ID }

func (s *Supplier) Clone() *Supplier {
	cp := *s
	cp.ShippingCountries = slices.Clone(s.ShippingCountries)
	cp.ProductCategories = slices.Clone(s.ProductCategories)
	return &cp
}

func (p *SupplierProduct) Key() string { return p.ID }

func (p *SupplierProduct) Clone() *SupplierProduct {
	cp := *p
	cp.Categories = slices.Clone(p.Categories)
	cp.Attributes = maps.Clone(p.Attributes)
	if p.Variants != nil {
		cp.Variants = make([]ProductVariant, len(p.Variants))
		for i, v := range p.Variants {
			v.Attributes = maps.Clone(v.Attributes)
			cp.Variants[i] = v
		}
	}
	return &cp
}

func (p *StoreProduct) Key() string { return p.ID }

func (p *StoreProduct) Clone() *StoreProduct {
	cp := *p
	cp.Categories = slices.Clone(p.Categories)
	cp.Tags = slices.Clone(p.Tags)
	cp.Attributes = maps.Clone(p.Attributes)
	if p.Variants != nil {
		cp.Variants = make([]StoreProductVariant, len(p.Variants))
		for i, v := range p.Variants {
			v.Attributes = maps.Clone(v.Attributes)
			cp.Variants[i] = v
		}
	}
	return &cp
}

func (s *StoreSettings) Key() string { return s.ID }

func (s *StoreSettings) Clone() *StoreSettings {
	cp := *s
	cp.Markup.CategoryMarkups = maps.Clone(s.Markup.CategoryMarkups)
	cp.Markup.SupplierMarkups = maps.Clone(s.Markup.SupplierMarkups)
	return &cp
}

func (o *Order) Key() string { return o.ID }

func (o *Order) Clone() *Order {
	cp := *o
	cp.Tags = slices.Clone(o.Tags)
	cp.DiscountCodes = slices.Clone(o.DiscountCodes)
	cp.FailedSupplierIDs = slices.Clone(o.FailedSupplierIDs)
	cp.Payment.PaidAt = cloneTime(o.Payment.PaidAt)
	cp.ProcessedAt = cloneTime(o.ProcessedAt)
	cp.CompletedAt = cloneTime(o.CompletedAt)
	cp.CancelledAt = cloneTime(o.CancelledAt)
	cp.RefundedAt = cloneTime(o.RefundedAt)
	cp.EstimatedDeliveryDate = cloneTime(o.EstimatedDeliveryDate)
	if o.Items != nil {
		cp.Items = make([]OrderItem, len(o.Items))
		for i, item := range o.Items {
			item.Attributes = maps.Clone(item.Attributes)
			cp.Items[i] = item
		}
	}
	if o.SupplierOrders != nil {
		cp.SupplierOrders = make([]SupplierOrderReference, len(o.SupplierOrders))
		for i, ref := range o.SupplierOrders {
			ref.Items = slices.Clone(ref.Items)
			cp.SupplierOrders[i] = ref
		}
	}
	return &cp
}

func (d *DiscountCode) Key() string { return d.ID }

func (d *DiscountCode) Clone() *DiscountCode {
	cp := *d
	cp.TargetIDs = slices.Clone(d.TargetIDs)
	cp.ExcludedProductIDs = slices.Clone(d.ExcludedProductIDs)
	cp.CustomerUsage = maps.Clone(d.CustomerUsage)
	cp.EndDate = cloneTime(d.EndDate)
	return &cp
}

func (c *AbandonedCart) Key() string { return c.ID }

func (c *AbandonedCart) Clone() *AbandonedCart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	cp.LastReminderSent = cloneTime(c.LastReminderSent)
	return &cp
}

func (c *Campaign) Key() string { return c.ID }

func (c *Campaign) Clone() *Campaign {
	cp := *c
	cp.CustomerIDs = slices.Clone(c.CustomerIDs)
	cp.ScheduledDate = cloneTime(c.ScheduledDate)
	cp.SentDate = cloneTime(c.SentDate)
	return &cp
}

func (k *IdempotencyKey) Key() string { return k.Token }

func (k *IdempotencyKey) Clone() *IdempotencyKey {
	cp := *k
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (o *SupplierOrder) Key() string { return o.ID }

func (o *SupplierOrder) Clone() *SupplierOrder {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	cp.CancelledAt = cloneTime(o.CancelledAt)
	return &cp
}
