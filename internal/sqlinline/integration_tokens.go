package sqlinline

// Provider tokens rotated by cmd/providerkey. The provider name is the key.
const QEnsureIntegrationTokenSchema = `--sql 0b815163-cc60-464f-bdd2-0dbd9e6445ef
create table if not exists integration_tokens (
    provider text primary key,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QSelectIntegrationToken = `--sql 94ac11e5-30bd-40e4-8e9a-e179520c1f94
select token
from integration_tokens
where provider = $1::text;
`

const QUpsertIntegrationToken = `--sql 968f1ea6-e1d1-40a2-aa76-ca36fe083e46
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
