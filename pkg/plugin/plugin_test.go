// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrdinalOrdersPhasesAsDocumented(t *testing.T) {
	assert.Less(t, PhaseDiscovery.Ordinal(), PhaseIndexing.Ordinal())
	assert.Less(t, PhaseIndexing.Ordinal(), PhaseAnalysis.Ordinal())
	assert.Less(t, PhaseAnalysis.Ordinal(), PhaseEnrichment.Ordinal())
	assert.Less(t, PhaseEnrichment.Ordinal(), PhaseGuarantee.Ordinal())
	assert.Less(t, PhaseGuarantee.Ordinal(), PhaseValidation.Ordinal())
	assert.Less(t, PhaseValidation.Ordinal(), PhaseFlush.Ordinal())
}

func TestOrdinalUnknownPhase(t *testing.T) {
	assert.Equal(t, -1, Phase("NOT_A_PHASE").Ordinal())
}
