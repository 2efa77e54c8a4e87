package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-subscribe/internal/scheme"
)

func sch(interval int, period scheme.Period, length int) scheme.Scheme {
	return scheme.Scheme{PeriodInterval: interval, Period: period, Length: length, PricingMethod: scheme.PricingInherit}
}

var (
	monthly3 = sch(1, scheme.PeriodMonth, 3)
	weekly0  = sch(1, scheme.PeriodWeek, 0)
	yearly2  = sch(1, scheme.PeriodYear, 2)
)

func plainItem(key string) Item {
	return Item{Key: key, ProductID: "p-" + key, Quantity: 1, Convertible: true}
}

func TestSchemesForNonConvertibleItemIsEmpty(t *testing.T) {
	legacy := plainItem("legacy")
	legacy.Convertible = false
	legacy.Schemes = []scheme.Scheme{monthly3}
	cart := Cart{Items: []Item{legacy, plainItem("a")}, Schemes: []scheme.Scheme{weekly0}}

	r := Resolver{}
	require.Empty(t, r.SchemesFor(cart, legacy, ScopeCartItem))
	require.Empty(t, r.SchemesFor(cart, legacy, ScopeAll))

	offer := r.CartLevelSchemes(cart)
	require.Equal(t, OfferBlocked, offer.Status)
	require.Equal(t, "legacy", offer.BlockedBy)
	require.False(t, offer.Available())
}

func TestSchemesForScopesAndTags(t *testing.T) {
	it := plainItem("a")
	it.Schemes = []scheme.Scheme{monthly3}
	cart := Cart{Items: []Item{it}, Schemes: []scheme.Scheme{weekly0}}

	all := Resolver{}.SchemesFor(cart, it, ScopeAll)
	require.Equal(t, []string{"1_month_3", "1_week_0"}, scheme.IDs(all))
	require.Equal(t, scheme.ScopeCartItem, all[0].Scope)
	require.Equal(t, scheme.ScopeCart, all[1].Scope)

	require.Equal(t, []string{"1_week_0"}, scheme.IDs(Resolver{}.SchemesFor(cart, it, ScopeCart)))
}

func TestProductSchemesBlockCartLevel(t *testing.T) {
	withOwn := plainItem("own")
	withOwn.Schemes = []scheme.Scheme{monthly3}
	cart := Cart{Items: []Item{plainItem("a"), withOwn}, Schemes: []scheme.Scheme{weekly0, yearly2}}

	offer := Resolver{}.CartLevelSchemes(cart)
	require.Equal(t, OfferBlocked, offer.Status)
	require.Equal(t, "own", offer.BlockedBy)
	require.Nil(t, offer.Schemes)
}

func TestCartLevelNoneVersusAvailable(t *testing.T) {
	cart := Cart{Items: []Item{plainItem("a")}}
	require.Equal(t, OfferNone, Resolver{}.CartLevelSchemes(cart).Status)

	withOwn := plainItem("own")
	withOwn.Schemes = []scheme.Scheme{monthly3}
	offer := Resolver{}.CartLevelSchemes(Cart{Items: []Item{plainItem("a"), withOwn}})
	require.Equal(t, OfferBlocked, offer.Status)
	require.Equal(t, "own", offer.BlockedBy)

	cart.Schemes = []scheme.Scheme{weekly0}
	offer = Resolver{}.CartLevelSchemes(cart)
	require.True(t, offer.Available())
	require.Equal(t, []string{"1_week_0"}, scheme.IDs(offer.Schemes))
}

func TestUnsupportedItemBlocksCartLevel(t *testing.T) {
	grouped := plainItem("grouped")
	grouped.Unsupported = true
	cart := Cart{Items: []Item{plainItem("a"), grouped}, Schemes: []scheme.Scheme{monthly3}}

	r := Resolver{}
	offer := r.CartLevelSchemes(cart)
	require.Equal(t, OfferBlocked, offer.Status)
	require.Equal(t, "grouped", offer.BlockedBy)

	require.Empty(t, r.CartItemSchemes(cart, grouped))
	require.Equal(t, []string{"1_month_3"}, scheme.IDs(r.CartItemSchemes(cart, plainItem("a"))))

	grouped.ForceSubscription = true
	_, ok := r.ActiveScheme(cart, grouped)
	require.False(t, ok)
	require.False(t, r.Selectable(cart, grouped, "1_month_3"))
}

func TestEligibleSchemesDedupesByID(t *testing.T) {
	it := plainItem("a")
	it.Schemes = []scheme.Scheme{monthly3, yearly2}
	cart := Cart{Items: []Item{it}, Schemes: []scheme.Scheme{weekly0, monthly3}}

	list := Resolver{}.EligibleSchemes(cart, it)
	require.Equal(t, []string{"1_month_3", "1_year_2", "1_week_0"}, scheme.IDs(list))
	require.Equal(t, scheme.ScopeCartItem, list[0].Scope)
}

func TestCartItemSchemesFallback(t *testing.T) {
	withOwn := plainItem("own")
	withOwn.Schemes = []scheme.Scheme{monthly3}
	plain := plainItem("plain")
	cart := Cart{Items: []Item{plain, withOwn}, Schemes: []scheme.Scheme{weekly0}}

	r := Resolver{}
	require.Equal(t, []string{"1_month_3"}, scheme.IDs(r.CartItemSchemes(cart, withOwn)))
	require.Equal(t, []string{"1_week_0"}, scheme.IDs(r.CartItemSchemes(cart, plain)))

	grouped := Cart{Items: []Item{plain}, Schemes: []scheme.Scheme{weekly0}}
	require.Empty(t, r.CartItemSchemes(grouped, plain))
}

func TestForceSubscriptionPicksFirstScheme(t *testing.T) {
	it := plainItem("forced")
	it.ForceSubscription = true
	it.Schemes = []scheme.Scheme{sch(1, scheme.PeriodMonth, 0)}
	cart := Cart{Items: []Item{it}}

	active, ok := Resolver{}.ActiveScheme(cart, it)
	require.True(t, ok)
	require.Equal(t, "1_month_0", active.ID())
}

func TestDefaultStatusSubscription(t *testing.T) {
	it := plainItem("a")
	it.DefaultStatus = DefaultSubscription
	it.Schemes = []scheme.Scheme{yearly2, monthly3}
	cart := Cart{Items: []Item{it}}
	require.Equal(t, "1_year_2", Resolver{}.DefaultSchemeID(cart, it))

	it.DefaultStatus = DefaultOneTime
	require.Equal(t, scheme.OneTimeID, Resolver{}.DefaultSchemeID(cart, it))
	_, ok := Resolver{}.ActiveScheme(cart, it)
	require.False(t, ok)
}

func TestRememberedItemSelectionWins(t *testing.T) {
	it := plainItem("a")
	it.ForceSubscription = true
	it.Schemes = []scheme.Scheme{yearly2, monthly3}
	it.ActiveSchemeID = "1_month_3"
	cart := Cart{Items: []Item{it}}

	active, ok := Resolver{}.ActiveScheme(cart, it)
	require.True(t, ok)
	require.Equal(t, "1_month_3", active.ID())

	it.ActiveSchemeID = "9_day_9"
	_, ok = Resolver{}.ActiveScheme(Cart{Items: []Item{it}}, it)
	require.False(t, ok)
}

func TestDefaultCartSchemeID(t *testing.T) {
	cart := Cart{Items: []Item{plainItem("a")}, Schemes: []scheme.Scheme{weekly0, yearly2}}

	require.Equal(t, scheme.OneTimeID, Resolver{}.DefaultCartSchemeID(cart))

	byDefault := Resolver{Config: Config{CartSubscriptionByDefault: true}}
	require.Equal(t, "1_week_0", byDefault.DefaultCartSchemeID(cart))

	cart.ActiveSchemeID = "1_year_2"
	require.Equal(t, "1_year_2", byDefault.DefaultCartSchemeID(cart))

	cart.ActiveSchemeID = scheme.OneTimeID
	require.Equal(t, scheme.OneTimeID, byDefault.DefaultCartSchemeID(cart))
}

func TestCartSelectionAppliesToEveryItemWhenOffered(t *testing.T) {
	a := plainItem("a")
	a.ActiveSchemeID = scheme.OneTimeID
	b := plainItem("b")
	cart := Cart{Items: []Item{a, b}, Schemes: []scheme.Scheme{weekly0, yearly2}, ActiveSchemeID: "1_year_2"}

	res := Resolver{}.Resolve(cart)
	require.True(t, res.Offer.Available())
	require.Equal(t, "1_year_2", res.CartSchemeID)
	for _, it := range res.Items {
		require.Equal(t, "1_year_2", it.ActiveSchemeID)
		require.Empty(t, it.Options)
		require.True(t, it.Conversion.Converted)
		require.Equal(t, scheme.PeriodYear, it.Conversion.Period)
		require.Equal(t, 2, it.Conversion.Length)
	}
}

func TestHooks(t *testing.T) {
	it := plainItem("a")
	it.Schemes = []scheme.Scheme{monthly3}
	cart := Cart{Items: []Item{it}}

	r := Resolver{Hooks: Hooks{
		Schemes: func(item Item, scope Scope, found []scheme.Scheme) []scheme.Scheme {
			if scope == ScopeCartItem {
				return append(found, yearly2.WithScope(scheme.ScopeCartItem))
			}
			return found
		},
		DefaultSchemeID: func(item Item, offer CartOffer, id string) string {
			if id == scheme.OneTimeID {
				return "1_year_2"
			}
			return id
		},
	}}
	require.Equal(t, []string{"1_month_3", "1_year_2"}, scheme.IDs(r.CartItemSchemes(cart, it)))

	active, ok := r.ActiveScheme(cart, it)
	require.True(t, ok)
	require.Equal(t, "1_year_2", active.ID())
	require.True(t, r.Selectable(cart, it, "1_year_2"))

	conv := r.Conversion(cart, it)
	require.True(t, conv.Converted)
	require.Equal(t, scheme.PeriodYear, conv.Period)
}

func TestResolveIsDeterministic(t *testing.T) {
	forced := plainItem("forced")
	forced.ForceSubscription = true
	forced.Schemes = []scheme.Scheme{monthly3, yearly2}
	cart := Cart{Items: []Item{forced, plainItem("b")}, Schemes: []scheme.Scheme{weekly0}}

	r := Resolver{Config: Config{CartSubscriptionByDefault: true}}
	first := r.Resolve(cart)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, r.Resolve(cart))
	}
	require.Equal(t, OfferBlocked, first.Offer.Status)
	forcedRes, ok := first.Item("forced")
	require.True(t, ok)
	require.Equal(t, "1_month_3", forcedRes.ActiveSchemeID)
	plainRes, ok := first.Item("b")
	require.True(t, ok)
	require.Equal(t, scheme.OneTimeID, plainRes.ActiveSchemeID)
	require.Equal(t, []string{"1_week_0"}, scheme.IDs(plainRes.Options))
}

func TestSelectable(t *testing.T) {
	forced := plainItem("forced")
	forced.ForceSubscription = true
	forced.Schemes = []scheme.Scheme{monthly3}
	legacy := plainItem("legacy")
	legacy.Convertible = false
	cart := Cart{Items: []Item{forced, legacy}, Schemes: []scheme.Scheme{weekly0}}

	r := Resolver{}
	require.False(t, r.Selectable(cart, forced, scheme.OneTimeID))
	require.True(t, r.Selectable(cart, forced, "1_month_3"))
	require.True(t, r.Selectable(cart, forced, "1_week_0"))
	require.False(t, r.Selectable(cart, forced, "2_month_3"))
	require.False(t, r.Selectable(cart, legacy, scheme.OneTimeID))

	plain := plainItem("plain")
	grouped := Cart{Items: []Item{plain}, Schemes: []scheme.Scheme{weekly0}}
	require.True(t, r.CartLevelSchemes(grouped).Available())
	require.False(t, r.Selectable(grouped, plain, "1_week_0"))
	require.False(t, r.Selectable(grouped, plain, scheme.OneTimeID))
}
