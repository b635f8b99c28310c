package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortex-hub/cortex-study-hub/internal/domain/mastery"
)

func TestBuildMasteryMap(t *testing.T) {
	rows := []*mastery.TopicMastery{
		{Subject: "Calculus", Topic: "limits", Score: 45},
		{Subject: "Calculus", Topic: "integration", Score: 30},
		{Subject: "Chemistry", Topic: "kinetics", Score: 80},
	}

	m := BuildMasteryMap(rows)

	assert.Equal(t, 30, m.TopicScores["integration"])
	assert.Equal(t, []string{"kinetics"}, m.StrongTopics)

	// Weak topics keep their subject and come weakest-first.
	require.Len(t, m.WeakTopics, 2)
	assert.Equal(t, WeakTopic{Subject: "Calculus", Topic: "integration", Score: 30}, m.WeakTopics[0])
	assert.Equal(t, WeakTopic{Subject: "Calculus", Topic: "limits", Score: 45}, m.WeakTopics[1])
}

func TestBuildMasteryMap_Empty(t *testing.T) {
	m := BuildMasteryMap(nil)

	assert.Empty(t, m.WeakTopics)
	assert.Empty(t, m.StrongTopics)
	assert.Empty(t, m.StuckTopics)
	assert.NotNil(t, m.TopicScores)
}
