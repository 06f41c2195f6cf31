package hcloud

import (
	"context"
	"maps"
	"slices"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/computectl/internal/compute"
	"github.com/imamik/computectl/internal/transport"
	"github.com/imamik/computectl/internal/util/keygen"
)

func toKeyPair(key *hcloud.SSHKey) compute.KeyPair {
	kp := compute.KeyPair{
		KeyName:     key.Name,
		KeyPairID:   formatID(key.ID),
		Fingerprint: key.Fingerprint,
		PublicKey:   key.PublicKey,
		Tags:        maps.Clone(key.Labels),
	}
	if len(kp.Tags) == 0 {
		kp.Tags = nil
	}
	return kp
}

// createKeyPair generates the key locally and uploads the public half. The
// private key is only ever returned from this call.
func (t *Transport) createKeyPair(ctx context.Context, _ *transport.Request, in *compute.CreateKeyPairInput) (*compute.CreateKeyPairOutput, string, error) {
	generated, err := keygen.Generate(in.KeyType)
	if err != nil {
		return nil, "", invalidID("key type", in.KeyType)
	}
	key, resp, err := t.client.SSHKey.Create(ctx, hcloud.SSHKeyCreateOpts{
		Name:      in.KeyName,
		PublicKey: string(generated.PublicKey),
		Labels:    in.Tags,
	})
	if err != nil {
		return nil, requestID(resp), apiError(resp, err)
	}
	kp := toKeyPair(key)
	kp.KeyType = generated.Type
	return &compute.CreateKeyPairOutput{KeyPair: kp, KeyMaterial: string(generated.PrivateKey)}, requestID(resp), nil
}

// deleteKeyPair succeeds when the key does not exist.
func (t *Transport) deleteKeyPair(ctx context.Context, _ *transport.Request, in *compute.DeleteKeyPairInput) (*compute.DeleteKeyPairOutput, string, error) {
	idOrName := in.KeyPairID
	if idOrName == "" {
		idOrName = in.KeyName
	}
	key, resp, err := t.client.SSHKey.Get(ctx, idOrName)
	if err != nil {
		return nil, requestID(resp), apiError(resp, err)
	}
	if key == nil {
		return &compute.DeleteKeyPairOutput{}, requestID(resp), nil
	}
	resp, err = t.client.SSHKey.Delete(ctx, key)
	if err != nil && !isNotFound(err) {
		return nil, requestID(resp), apiError(resp, err)
	}
	return &compute.DeleteKeyPairOutput{}, requestID(resp), nil
}

func (t *Transport) describeKeyPairs(ctx context.Context, _ *transport.Request, in *compute.DescribeKeyPairsInput) (*compute.DescribeKeyPairsOutput, string, error) {
	labels, _ := splitFilters(in.Filters, "")
	out := &compute.DescribeKeyPairsOutput{}
	seen := map[string]bool{}
	var reqID string
	for page := 1; page > 0; {
		keys, resp, err := t.client.SSHKey.List(ctx, hcloud.SSHKeyListOpts{
			ListOpts: hcloud.ListOpts{Page: page, PerPage: maxPerPage, LabelSelector: labelSelector(labels)},
		})
		if err != nil {
			return nil, requestID(resp), apiError(resp, err)
		}
		reqID = requestID(resp)
		for _, key := range keys {
			if len(in.KeyNames) > 0 && !slices.Contains(in.KeyNames, key.Name) {
				continue
			}
			seen[key.Name] = true
			out.KeyPairs = append(out.KeyPairs, toKeyPair(key))
		}
		page = 0
		if resp != nil && resp.Meta.Pagination != nil {
			page = resp.Meta.Pagination.NextPage
		}
	}
	for _, name := range in.KeyNames {
		if !seen[name] {
			return nil, reqID, notFound("key pair", name, nil)
		}
	}
	return out, reqID, nil
}
