package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/skillbridge/skillbridge/server/model"
	"github.com/skillbridge/skillbridge/server/roadmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkillSwap_CreateListAccept(t *testing.T) {
	f := newFixture(t)
	owner, ownerID := f.login(t, "owner")
	partner, partnerID := f.login(t, "partner")

	w := f.do(t, http.MethodPost, "/api/skillswap", owner, `{"offerSkill":"Excel","wantSkill":"Canva","note":"weekends"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var swap model.SkillSwap
	decode(t, w, &swap)
	assert.Equal(t, ownerID, swap.OwnerID)
	assert.Equal(t, model.SwapOpen, swap.Status)

	w = f.do(t, http.MethodGet, "/api/skillswap", partner, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Swaps []model.SkillSwap `json:"swaps"`
	}
	decode(t, w, &list)
	require.Len(t, list.Swaps, 1)

	accept := fmt.Sprintf("/api/skillswap/%d/accept", swap.ID)
	w = f.do(t, http.MethodPost, accept, owner, "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "owner cannot accept their own swap")

	w = f.do(t, http.MethodPost, accept, partner, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res roadmap.SwapResult
	decode(t, w, &res)
	assert.Equal(t, int64(5), res.Outcome.SkillCreditsAwarded)
	assert.Equal(t, int64(5), res.Roadmap.SkillCredits)
	require.NotNil(t, res.Swap.PartnerID)
	assert.Equal(t, partnerID, *res.Swap.PartnerID)

	ownerProgress, err := f.svc.Profile(t.Context(), ownerID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ownerProgress.SkillCredits)

	w = f.do(t, http.MethodPost, accept, partner, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodGet, "/api/skillswap?status=accepted", partner, "")
	decode(t, w, &list)
	require.Len(t, list.Swaps, 1)

	w = f.do(t, http.MethodGet, "/api/skillswap?status=bogus", partner, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPost, "/api/skillswap/999/accept", partner, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodPost, "/api/skillswap", owner, `{"offerSkill":"  ","wantSkill":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPods_CreateRespond(t *testing.T) {
	f := newFixture(t)
	asker, _ := f.login(t, "asker")
	helper, helperID := f.login(t, "helper")

	w := f.do(t, http.MethodPost, "/api/pods", asker, `{"title":"How do I price a logo?","category":"pricing"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pod model.ProblemPod
	decode(t, w, &pod)

	respond := fmt.Sprintf("/api/pods/%d/respond", pod.ID)
	for i := 0; i < 2; i++ {
		w = f.do(t, http.MethodPost, respond, helper, `{"message":"Start from your hourly rate."}`)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w = f.do(t, http.MethodPost, respond, helper, `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodPost, "/api/pods/424242/respond", helper, `{"message":"hello"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/pods?category=pricing", helper, "")
	require.Equal(t, http.StatusOK, w.Code)
	var pods struct {
		Pods []model.ProblemPod `json:"pods"`
	}
	decode(t, w, &pods)
	require.Len(t, pods.Pods, 1)
	assert.Equal(t, 2, pods.Pods[0].Replies)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/pods/%d/replies", pod.ID), asker, "")
	require.Equal(t, http.StatusOK, w.Code)
	var replies struct {
		Replies []model.PodReply `json:"replies"`
	}
	decode(t, w, &replies)
	require.Len(t, replies.Replies, 2)
	assert.Equal(t, helperID, replies.Replies[0].UserID)

	var count int64
	require.NoError(t, f.db.Model(&model.PodReply{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "a reply to a missing pod leaves nothing behind")
}
