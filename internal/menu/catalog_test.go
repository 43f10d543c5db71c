package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Len(t, c.Items(), 18)

	item, ok := c.Item("quatro-smashed-patty")
	require.True(t, ok)
	assert.Equal(t, "TUX Quatro Smashed Patty", item.Name)
	assert.Equal(t, 190.0, item.BasePrice)

	bacon, ok := item.Extra("bacon")
	require.True(t, ok)
	assert.Equal(t, 20.0, bacon.Price)

	fries, ok := c.Item("tux-fries")
	require.True(t, ok)
	assert.Empty(t, fries.Extras)

	_, ok = c.Item("pizza")
	assert.False(t, ok)
}

func TestCategoriesKeepMenuOrder(t *testing.T) {
	cats := Default().Categories()
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Smash Burgers", "TUXIFY", "Fries", "Hawawshi", "Drinks"}, names)
	assert.Len(t, cats[0].Items, 4)
}

func TestNewCatalogSkipsBlankAndDuplicateIDs(t *testing.T) {
	c := NewCatalog([]Item{
		{ID: " a ", Name: "A"},
		{ID: "", Name: "blank"},
		{ID: "a", Name: "dup"},
	})
	require.Len(t, c.Items(), 1)
	item, ok := c.Item("a")
	require.True(t, ok)
	assert.Equal(t, "A", item.Name)
}

func TestZonesFind(t *testing.T) {
	zones := DefaultZones()
	zone, ok := zones.Find("kornish-el-maadi")
	require.True(t, ok)
	assert.Equal(t, 40.0, zone.Fee)

	_, ok = zones.Find("")
	assert.False(t, ok)
	_, ok = zones.Find("heliopolis")
	assert.False(t, ok)
}
