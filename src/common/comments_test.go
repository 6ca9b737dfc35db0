package common

import (
	"campusmarket/src/types"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostCommentNotifiesSeller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, "Drawing tablet")

	comment, err := f.comments.PostComment(ctx, item.ID, f.buyer.ID, "  Is the pen included?  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Is the pen included?", comment.Text)
	assert.Equal(t, "Bea Buyer", comment.AuthorName)
	assert.Equal(t, f.buyer.Picture, comment.AuthorPicture)
	assert.Nil(t, comment.ParentID)

	sellerInbox := f.notificationsFor(t, f.seller.ID)
	require.Len(t, sellerInbox, 1)
	assert.Equal(t, types.NOTIFICATION_NEW_COMMENT, sellerInbox[0].Type)
	require.NotNil(t, sellerInbox[0].ItemID)
	assert.Equal(t, item.ID, *sellerInbox[0].ItemID)
	assert.Contains(t, sellerInbox[0].Message, "Bea Buyer")
}

func TestSellerCommentOnOwnItemIsSilent(t *testing.T) {
	f := newFixture(t)
	item := f.createItem(t, "Yoga mat")

	_, err := f.comments.PostComment(context.Background(), item.ID, f.seller.ID, "Still available", nil)
	require.NoError(t, err)
	assert.Empty(t, f.notificationsFor(t, f.seller.ID))
}

func TestReplyNotifiesParentAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, "Camping stove")

	question, err := f.comments.PostComment(ctx, item.ID, f.buyer.ID, "Does it work?", nil)
	require.NoError(t, err)
	reply, err := f.comments.PostComment(ctx, item.ID, f.seller.ID, "Yes, tested last week", &question.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, question.ID, *reply.ParentID)

	assert.Equal(t, []types.NotificationType{types.NOTIFICATION_COMMENT_REPLY}, f.notificationTypes(t, f.buyer.ID))
	// Only the buyer's question reached the seller.
	assert.Equal(t, []types.NotificationType{types.NOTIFICATION_NEW_COMMENT}, f.notificationTypes(t, f.seller.ID))

	_, err = f.comments.PostComment(ctx, item.ID, f.buyer.ID, "Thanks!", &question.ID)
	require.NoError(t, err)
	assert.Len(t, f.notificationsFor(t, f.buyer.ID), 1)
}

func TestPostCommentErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, "Table")
	otherItem := f.createItem(t, "Bench")

	_, err := f.comments.PostComment(ctx, item.ID, f.buyer.ID, "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.comments.PostComment(ctx, 404, f.buyer.ID, "hello", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	missing := uint(777)
	_, err = f.comments.PostComment(ctx, item.ID, f.buyer.ID, "hello", &missing)
	assert.ErrorIs(t, err, ErrNotFound)

	elsewhere, err := f.comments.PostComment(ctx, otherItem.ID, f.buyer.ID, "on the bench", nil)
	require.NoError(t, err)
	_, err = f.comments.PostComment(ctx, item.ID, f.other.ID, "wrong thread", &elsewhere.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	top, err := f.comments.PostComment(ctx, item.ID, f.buyer.ID, "top", nil)
	require.NoError(t, err)
	reply, err := f.comments.PostComment(ctx, item.ID, f.seller.ID, "reply", &top.ID)
	require.NoError(t, err)
	_, err = f.comments.PostComment(ctx, item.ID, f.other.ID, "nested", &reply.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.createItem(t, "Snowboard")

	first, err := f.comments.PostComment(ctx, item.ID, f.buyer.ID, "first", nil)
	require.NoError(t, err)
	_, err = f.comments.PostComment(ctx, item.ID, f.seller.ID, "second", &first.ID)
	require.NoError(t, err)
	_, err = f.comments.PostComment(ctx, item.ID, f.other.ID, "third", nil)
	require.NoError(t, err)

	list, err := f.comments.ListComments(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Text)
	assert.Equal(t, "second", list[1].Text)
	assert.Equal(t, "third", list[2].Text)
	assert.Equal(t, "Sam Seller", list[1].AuthorName)
	assert.Equal(t, "Oli Other", list[2].AuthorName)

	_, err = f.comments.ListComments(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	empty := f.createItem(t, "Skis")
	none, err := f.comments.ListComments(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCommentNotifierFailure(t *testing.T) {
	f := newFixture(t)
	notifier := &failingNotifier{}
	thread := NewCommentThread(f.db, notifier)
	item := f.createItem(t, "Tent")

	comment, err := thread.PostComment(context.Background(), item.ID, f.buyer.ID, "How many people?", nil)
	require.NoError(t, err)
	assert.NotZero(t, comment.ID)
	assert.Equal(t, 1, notifier.calls)
}
