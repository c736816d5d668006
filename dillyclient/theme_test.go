// Copyright 2025 James Stopford
// SPDX-License-Identifier: Apache-2.0

package dillyclient

import (
	"context"
	"testing"

	"github.com/jamesstopford/big-dilly/dillyapi"
	"github.com/stretchr/testify/require"
)

type fakeThemeAPI struct {
	themes []string
	err    error
}

func (f *fakeThemeAPI) UpdateTheme(_ context.Context, theme string) error {
	f.themes = append(f.themes, theme)
	return f.err
}

func TestThemeStore_DefaultsAndSavedTheme(t *testing.T) {
	ctx := context.Background()
	store := NewThemeStore(ctx, &fakeThemeAPI{}, nil, newMemoryPrefs(), testLogger())
	require.Equal(t, dillyapi.DefaultTheme, store.Theme())

	prefs := newMemoryPrefs()
	require.NoError(t, prefs.Set(ctx, themeKey, "cyber-neon"))
	require.Equal(t, "cyber-neon", NewThemeStore(ctx, &fakeThemeAPI{}, nil, prefs, testLogger()).Theme())

	require.NoError(t, prefs.Set(ctx, themeKey, "sepia"))
	require.Equal(t, dillyapi.DefaultTheme, NewThemeStore(ctx, &fakeThemeAPI{}, nil, prefs, testLogger()).Theme())
}

func TestThemeStore_SetThemeLoggedOut(t *testing.T) {
	ctx := context.Background()
	api := &fakeThemeAPI{}
	prefs := newMemoryPrefs()
	auth := NewAuthStore(&fakeAuthAPI{}, testLogger())
	store := NewThemeStore(ctx, api, auth, prefs, testLogger())

	require.True(t, store.SetTheme(ctx, "dark").Success)
	require.Equal(t, "dark", store.Theme())
	saved, _, _ := prefs.Get(ctx, themeKey)
	require.Equal(t, "dark", saved)
	require.Empty(t, api.themes, "nothing to push without a session")

	res := store.SetTheme(ctx, "sepia")
	require.Equal(t, "Invalid theme: sepia", res.Error)
	require.Equal(t, "dark", store.Theme())
}

func TestThemeStore_SetThemeSignedIn(t *testing.T) {
	ctx := context.Background()
	api := &fakeThemeAPI{}
	auth := NewAuthStore(&fakeAuthAPI{}, testLogger())
	require.True(t, auth.Login(ctx, "a@b.co", "password1").Success)
	store := NewThemeStore(ctx, api, auth, newMemoryPrefs(), testLogger())

	require.True(t, store.SetTheme(ctx, "cyber-neon").Success)
	require.Equal(t, []string{"cyber-neon"}, api.themes)
	require.Equal(t, "cyber-neon", auth.User().Theme)

	api.err = errServer
	res := store.SetTheme(ctx, "dark")
	require.False(t, res.Success)
	require.Equal(t, "dark", store.Theme(), "the local choice stands")
	require.Equal(t, "cyber-neon", auth.User().Theme)
}

func TestThemeStore_InitFromUserAndCycle(t *testing.T) {
	ctx := context.Background()
	prefs := newMemoryPrefs()
	store := NewThemeStore(ctx, &fakeThemeAPI{}, nil, prefs, testLogger())

	store.InitFromUser(ctx, &dillyapi.User{Theme: "dark"})
	require.Equal(t, "dark", store.Theme())
	store.InitFromUser(ctx, &dillyapi.User{Theme: "bogus"})
	store.InitFromUser(ctx, nil)
	require.Equal(t, "dark", store.Theme())

	require.True(t, store.Cycle(ctx).Success)
	require.Equal(t, "cyber-neon", store.Theme())
	store.Cycle(ctx)
	require.Equal(t, "light", store.Theme())
	saved, _, _ := prefs.Get(ctx, themeKey)
	require.Equal(t, "light", saved)
}
